// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/pacelink/pkg/dcm"
	"github.com/Thermoquad/pacelink/pkg/identity"
	"github.com/Thermoquad/pacelink/pkg/link"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// PasswordEnv names the variable holding the WebSocket bridge password
const PasswordEnv = "PACELINK_PASSWORD"

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// replaced in tests
var (
	listPorts    = link.ListPorts
	serialOpener = link.OpenSerial
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// resolveDescriptor turns a bare port path into the "<path>: <description>"
// form the identity classifier needs, using the enumerated port list.
func resolveDescriptor(port string) string {
	if port != link.PortPath(port) {
		return port
	}
	ports, err := listPorts()
	if err != nil {
		return port
	}
	for _, p := range ports {
		if link.PortPath(p) == port {
			return p
		}
	}
	return port
}

func newDevice() *dcm.Device {
	return dcm.New(dcm.Options{
		BaudRate:      cfg.Serial.Baud,
		Opener:        serialOpener,
		Timeout:       time.Duration(cfg.Serial.ResponseTimeout),
		Classifier:    cfg.Classifier(),
		LEDOffTime:    cfg.LED.OffTime,
		LEDSwitchTime: cfg.LED.SwitchTime,
	})
}

// OpenDevice connects to the board using the serial or WebSocket flags.
// The returned string describes the connection for display.
func OpenDevice(ctx context.Context) (*dcm.Device, string, error) {
	d := newDevice()

	if wsURL != "" {
		// WebSocket mode
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		port, err := link.DialWebSocket(dialCtx, wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", connectionError(err)
		}

		id, w := d.ConnectPort(port, link.FormatDescriptor(wsURL, "WebSocket bridge"))
		reportIdentity(id, w)
		return d, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if cfg.Serial.Port != "" {
		// Serial mode
		descriptor := resolveDescriptor(cfg.Serial.Port)
		id, w, err := d.Connect(descriptor)
		if err != nil {
			return nil, "", connectionError(err)
		}

		reportIdentity(id, w)
		return d, fmt.Sprintf("Serial: %s @ %d baud", link.PortPath(descriptor), cfg.Serial.Baud), nil
	}

	return nil, "", withCode(ExitConnection, errors.New("either --port or --url must be specified"))
}

func reportIdentity(id identity.Identity, w *identity.ChangeWarning) {
	if w != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render("WARNING: "+w.String()))
	}
	if !id.Verified {
		fmt.Fprintln(os.Stderr, warningStyle.Render("WARNING: "+id.String()+", LED commands disabled"))
	}
}
