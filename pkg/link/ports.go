// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// allow tests to replace the OS enumeration
var detailedPortsList = enumerator.GetDetailedPortsList

// ListPorts returns every serial port as "<path>: <description>".
func ListPorts() ([]string, error) {
	ports, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	out := make([]string, 0, len(ports))
	for _, p := range ports {
		out = append(out, FormatDescriptor(p.Name, describe(p)))
	}
	sort.Strings(out)
	return out, nil
}

func describe(p *enumerator.PortDetails) string {
	switch {
	case p.Product != "":
		return p.Product
	case p.IsUSB:
		return fmt.Sprintf("USB Serial (%s:%s)", strings.ToUpper(p.VID), strings.ToUpper(p.PID))
	default:
		return "n/a"
	}
}

// FormatDescriptor joins a device path and its description
func FormatDescriptor(path, description string) string {
	return path + ": " + description
}

// PortPath strips the description from a port descriptor.
// "COM3: mbed Serial Port" becomes "COM3"; a bare path or URL is returned
// as is.
func PortPath(descriptor string) string {
	path, _, _ := strings.Cut(descriptor, ": ")
	return strings.TrimSuffix(strings.TrimSpace(path), ":")
}
