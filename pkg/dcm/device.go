// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dcm is the device controller-monitor facade: one object holding
// the link, the command session, the telemetry reader and the device
// identity, callable from any front end.
package dcm

import (
	"errors"
	"sync"
	"time"

	"github.com/Thermoquad/pacelink/pkg/egram"
	"github.com/Thermoquad/pacelink/pkg/identity"
	"github.com/Thermoquad/pacelink/pkg/link"
	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/Thermoquad/pacelink/pkg/session"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnverified is returned by capabilities reserved for a verified board.
	ErrUnverified = errors.New("device not verified")
	// ErrStreaming is returned by commands issued while telemetry streams.
	ErrStreaming = errors.New("telemetry streaming in progress")
	// ErrNotStreaming is returned when polling or stopping an idle stream.
	ErrNotStreaming = errors.New("telemetry not streaming")
)

// Options configures a Device. Zero values select defaults.
type Options struct {
	BaudRate      int
	Timeout       time.Duration
	Opener        link.Opener
	Classifier    *identity.Classifier
	Clock         clockwork.Clock
	LEDOffTime    float32
	LEDSwitchTime uint16
}

// Device is one operator station's connection to the board. At most one
// command or the telemetry stream uses the link at a time.
type Device struct {
	mu   sync.Mutex
	opts Options

	link    *link.Link
	sess    *session.Session
	reader  *egram.Reader
	id      identity.Identity
	tracker identity.Tracker
}

// New creates a disconnected Device
func New(opts Options) *Device {
	if opts.BaudRate == 0 {
		opts.BaudRate = link.DefaultBaudRate
	}
	if opts.Timeout == 0 {
		opts.Timeout = session.DefaultTimeout
	}
	if opts.Opener == nil {
		opts.Opener = link.OpenSerial
	}
	if opts.Classifier == nil {
		opts.Classifier = identity.NewClassifier(nil, "")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.LEDOffTime == 0 {
		opts.LEDOffTime = pacer.DefaultLEDOffTime
	}
	if opts.LEDSwitchTime == 0 {
		opts.LEDSwitchTime = pacer.DefaultLEDSwitchTime
	}
	return &Device{opts: opts}
}

// Ports lists candidate serial ports as "<path>: <description>"
func Ports() ([]string, error) {
	return link.ListPorts()
}

// Connect opens the port named by descriptor and classifies it. A change
// warning is returned when a different device answered on the previous
// connect. An existing connection is closed first.
func (d *Device) Connect(descriptor string) (identity.Identity, *identity.ChangeWarning, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.disconnect()
	l, err := link.Open(descriptor, d.opts.BaudRate, d.opts.Opener)
	if err != nil {
		return d.id, nil, err
	}
	id, w := d.attach(l, descriptor)
	return id, w, nil
}

// ConnectPort attaches an already opened port, such as a WebSocket bridge.
func (d *Device) ConnectPort(port link.Port, descriptor string) (identity.Identity, *identity.ChangeWarning) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.disconnect()
	return d.attach(link.New(port, link.PortPath(descriptor), d.opts.BaudRate), descriptor)
}

func (d *Device) attach(l *link.Link, descriptor string) (identity.Identity, *identity.ChangeWarning) {
	d.link = l
	d.sess = session.New(l, session.WithTimeout(d.opts.Timeout))
	d.reader = egram.NewReader(l, egram.WithClock(d.opts.Clock))
	d.id = d.opts.Classifier.Classify(descriptor)

	w := d.tracker.Observe(d.id.DeviceID)
	if w != nil {
		log.Warn().Str("previous", w.Previous).Str("current", w.Current).Msg("connected device differs from last interrogated device")
	}
	log.Info().Str("port", l.Name()).Str("device", d.id.DeviceID).Bool("verified", d.id.Verified).Msg("connected")
	return d.id, w
}

// Disconnect closes the link. It is safe mid-stream and when already
// disconnected; no further reads happen afterwards.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnect()
}

func (d *Device) disconnect() error {
	if d.link == nil {
		return nil
	}
	if d.reader.Streaming() {
		d.reader.Stop()
	}
	err := d.link.Close()
	log.Info().Str("port", d.link.Name()).Msg("disconnected")
	d.link, d.sess, d.reader = nil, nil, nil
	d.id = identity.Disconnected()
	return err
}

// Identity returns the current device identity
func (d *Device) Identity() identity.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// LastDeviceID returns the id remembered from the previous connect
func (d *Device) LastDeviceID() string {
	return d.tracker.Last()
}

// commandSession returns the session if a command may run now. Caller holds mu.
func (d *Device) commandSession(op string) (*session.Session, error) {
	if d.sess == nil {
		return nil, &session.CommError{Kind: session.ErrNotConnected, Op: op}
	}
	if d.reader.Streaming() {
		return nil, ErrStreaming
	}
	return d.sess, nil
}

// Interrogate reads the board's stored parameters
func (d *Device) Interrogate() (pacer.Echo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.commandSession("interrogate")
	if err != nil {
		return pacer.Echo{}, err
	}
	return s.Interrogate()
}

// WriteAndVerify programs params and reads them back
func (d *Device) WriteAndVerify(params pacer.ParameterSet) (session.Verification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.commandSession("write")
	if err != nil {
		return session.Verification{}, err
	}
	return s.WriteAndVerify(params)
}

// SetLED lights the diagnostic LED. Only allowed on a verified board.
func (d *Device) SetLED(color pacer.LEDColor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.commandSession("set led")
	if err != nil {
		return err
	}
	if !d.id.Verified {
		return ErrUnverified
	}
	return s.SetLED(pacer.SetLED{Color: color, OffTime: d.opts.LEDOffTime, SwitchTime: d.opts.LEDSwitchTime})
}

// InterrogateLED reads the LED settings back. Only allowed on a verified board.
func (d *Device) InterrogateLED() (pacer.LEDEcho, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.commandSession("interrogate led")
	if err != nil {
		return pacer.LEDEcho{}, err
	}
	if !d.id.Verified {
		return pacer.LEDEcho{}, ErrUnverified
	}
	return s.InterrogateLED()
}

// StartStream tells the board to stream telemetry and starts a new session
// time origin. Commands fail with ErrStreaming until StopStream.
func (d *Device) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.commandSession("start stream")
	if err != nil {
		return err
	}
	if err := s.StartEgram(); err != nil {
		return err
	}
	return d.reader.Start()
}

// StopStream halts polling and tells the board to stop streaming.
func (d *Device) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reader == nil || !d.reader.Streaming() {
		return ErrNotStreaming
	}
	d.reader.Stop()
	stats := d.reader.Stats()
	log.Debug().Str("stats", stats.Summary(d.opts.Clock.Now())).Msg("egram stream stopped")
	return d.sess.StopEgram()
}

// PollStream returns the samples received since the last poll. A transport
// failure stops the stream and is returned.
func (d *Device) PollStream() ([]pacer.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reader == nil || !d.reader.Streaming() {
		return nil, ErrNotStreaming
	}
	samples, err := d.reader.Poll()
	if err != nil {
		d.reader.Stop()
		return samples, err
	}
	return samples, nil
}

// Streaming reports whether telemetry is streaming
func (d *Device) Streaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reader != nil && d.reader.Streaming()
}

// StreamStats returns the statistics of the current or last stream
func (d *Device) StreamStats() egram.Statistics {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return egram.Statistics{}
	}
	return d.reader.Stats()
}

// Monitor returns a Monitor that polls this device from its own goroutine.
// It ends when the stream is stopped or disconnected.
func (d *Device) Monitor(interval time.Duration) (*egram.Monitor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reader == nil || !d.reader.Streaming() {
		return nil, ErrNotStreaming
	}
	return egram.NewMonitor(d.reader, interval).WithPoll(func() ([]pacer.Sample, error) {
		samples, err := d.PollStream()
		if errors.Is(err, ErrNotStreaming) {
			return samples, egram.ErrStopped
		}
		return samples, err
	}), nil
}
