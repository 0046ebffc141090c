// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/pacelink/pkg/link/linktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func openMock(t *testing.T) (*Link, *linktest.MockPort) {
	t.Helper()
	mock := linktest.NewMockPort()
	l, err := Open("COM3: mbed Serial Port", DefaultBaudRate, func(path string, baud int) (Port, error) {
		assert.Equal(t, "COM3", path)
		assert.Equal(t, DefaultBaudRate, baud)
		return mock, nil
	})
	require.NoError(t, err)
	return l, mock
}

func TestOpen_StripsDescription(t *testing.T) {
	t.Parallel()

	l, _ := openMock(t)
	assert.Equal(t, "COM3", l.Name())
	assert.Equal(t, DefaultBaudRate, l.BaudRate())
	assert.True(t, l.IsOpen())
}

func TestOpen_Failure(t *testing.T) {
	t.Parallel()

	boom := errors.New("access denied")
	_, err := Open("/dev/ttyACM0", DefaultBaudRate, func(string, int) (Port, error) {
		return nil, boom
	})
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "open", terr.Op)
	assert.ErrorIs(t, err, boom)

	_, err = Open("", DefaultBaudRate, nil)
	assert.Error(t, err)
}

func TestLink_BufferedReadUnread(t *testing.T) {
	t.Parallel()

	l, mock := openMock(t)
	mock.MaxRead = 3
	mock.Feed([]byte{1, 2, 3, 4, 5, 6, 7})

	n, err := l.Buffered()
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	buf := make([]byte, 2)
	n, err = l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, buf[:n])

	l.Unread([]byte{1, 2})
	n, err = l.Buffered()
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	all, err := l.ReadFull(7, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, all)
}

func TestLink_ReadEmptyDoesNotBlock(t *testing.T) {
	t.Parallel()

	l, _ := openMock(t)
	n, err := l.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLink_ReadFullTimeout(t *testing.T) {
	t.Parallel()

	l, mock := openMock(t)
	mock.Feed([]byte{0xAA, 0xBB})

	start := time.Now()
	got, err := l.ReadFull(16, time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
	assert.Less(t, time.Since(start), time.Second)

	// partial bytes were consumed
	n, err := l.Buffered()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLink_WriteAndFlush(t *testing.T) {
	t.Parallel()

	l, mock := openMock(t)
	require.NoError(t, l.Write([]byte{0x16, 0x22}))
	assert.Equal(t, [][]byte{{0x16, 0x22}}, mock.Written())

	mock.Feed([]byte{9, 9, 9})
	_, err := l.Buffered()
	require.NoError(t, err)

	require.NoError(t, l.Flush())
	assert.Equal(t, 1, mock.Resets())
	n, err := l.Buffered()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLink_PortErrors(t *testing.T) {
	t.Parallel()

	l, mock := openMock(t)
	mock.WriteErr = errors.New("io error")
	err := l.Write([]byte{1})
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "write", terr.Op)

	mock.ReadErr = errors.New("device unplugged")
	_, err = l.Buffered()
	assert.ErrorAs(t, err, &terr)
}

func TestLink_CloseIdempotent(t *testing.T) {
	t.Parallel()

	l, mock := openMock(t)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, mock.Closed())
	assert.False(t, l.IsOpen())

	_, err := l.Buffered()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = l.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = l.ReadFull(1, time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, l.Write([]byte{1}), ErrClosed)
	assert.ErrorIs(t, l.Flush(), ErrClosed)
}

//nolint:paralleltest // replaces package-level enumerator
func TestListPorts(t *testing.T) {
	orig := detailedPortsList
	t.Cleanup(func() { detailedPortsList = orig })

	detailedPortsList = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "COM4", IsUSB: true, VID: "0403", PID: "6001"},
			{Name: "COM3", IsUSB: true, VID: "0d28", PID: "0204", Product: "mbed Serial Port"},
			{Name: "COM1"},
		}, nil
	}

	ports, err := ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"COM1: n/a",
		"COM3: mbed Serial Port",
		"COM4: USB Serial (0403:6001)",
	}, ports)

	detailedPortsList = func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("no access")
	}
	_, err = ListPorts()
	assert.Error(t, err)
}

func TestPortPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "COM3", PortPath("COM3: mbed Serial Port"))
	assert.Equal(t, "/dev/ttyACM0", PortPath("/dev/ttyACM0: STM32 STLink"))
	assert.Equal(t, "/dev/ttyUSB0", PortPath(" /dev/ttyUSB0 "))
	assert.Equal(t, "COM4", PortPath("COM4:"))
	assert.Equal(t, "ws://bridge.local/dcm", PortPath("ws://bridge.local/dcm: WebSocket bridge"))
	assert.Equal(t, "COM3: x", FormatDescriptor("COM3", "x"))
}
