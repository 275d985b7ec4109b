// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package bus

import (
	"github.com/warthog618/thermlog/spidev"
)

// Spidev opens peripherals through the Linux spidev character devices.
//
// The selector is the device name or path, e.g. "spidev0.1".
type Spidev struct {
	// Speed is the clock rate in Hz. Zero selects spidev.DefaultSpeed.
	Speed uint32
}

// Open opens and configures the spidev device.
func (s Spidev) Open(selector string, mode Mode) (Conn, error) {
	var opts []spidev.Option
	if s.Speed != 0 {
		opts = append(opts, spidev.WithSpeed(s.Speed))
	}
	d, err := spidev.Open(selector, uint8(mode), opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}
