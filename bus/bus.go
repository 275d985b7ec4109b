// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package bus defines the transport used to reach SPI peripherals.
//
// A Conn is an open handle to a single peripheral on an SPI bus. Exchanges
// are synchronous, blocking, fixed length and full duplex. Failures to open,
// configure or exchange are fatal and are reported as a *FatalError.
package bus

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/drivers"
)

// Conn is an open connection to one peripheral.
type Conn interface {
	drivers.SPI
	io.Closer

	// Name identifies the peripheral, e.g. the device path.
	Name() string
}

// Mode is the SPI clock polarity and phase, as per the Linux spidev modes.
type Mode uint8

const (
	// Mode0 idles the clock low and samples on the leading edge.
	Mode0 Mode = iota

	// Mode1 idles the clock low and samples on the trailing edge.
	Mode1

	// Mode2 idles the clock high and samples on the leading edge.
	Mode2

	// Mode3 idles the clock high and samples on the trailing edge.
	Mode3
)

// CPOL returns the clock polarity of the mode.
func (m Mode) CPOL() int {
	return int(m>>1) & 0x01
}

// CPHA returns the clock phase of the mode.
func (m Mode) CPHA() int {
	return int(m) & 0x01
}

// Opener opens connections to peripherals on a bus.
//
// The selector identifies the peripheral in a backend specific manner, e.g.
// a spidev device name or the offset of a chip select line.
type Opener interface {
	Open(selector string, mode Mode) (Conn, error)
}

// OpenerFunc adapts a function to an Opener.
type OpenerFunc func(selector string, mode Mode) (Conn, error)

// Open calls f(selector, mode).
func (f OpenerFunc) Open(selector string, mode Mode) (Conn, error) {
	return f(selector, mode)
}

// Open opens a connection using the opener, converting any failure to a
// FatalError.
func Open(o Opener, selector string, mode Mode) (Conn, error) {
	c, err := o.Open(selector, mode)
	if err != nil {
		return nil, fatal("open", selector, err)
	}
	return c, nil
}

// Exchange writes tx to the peripheral and returns the bytes clocked in
// while doing so.
//
// The returned slice is always the same length as tx.
func Exchange(c Conn, tx []byte) ([]byte, error) {
	rx := make([]byte, len(tx))
	if err := c.Tx(tx, rx); err != nil {
		return nil, fatal("exchange", c.Name(), err)
	}
	return rx, nil
}

// Transfer exchanges a single byte with the peripheral.
func Transfer(c Conn, b byte) (byte, error) {
	r, err := c.Transfer(b)
	if err != nil {
		return 0, fatal("exchange", c.Name(), err)
	}
	return r, nil
}

// FatalError indicates an unrecoverable bus failure.
//
// There is no fallback path for a dedicated instrument bus, so callers are
// expected to report the error and terminate.
type FatalError struct {
	Op     string
	Device string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("bus %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("bus %s %s: %s", e.Op, e.Device, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func fatal(op, device string, err error) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Op: op, Device: device, Err: err}
}

var (
	// ErrClosed indicates the connection is closed.
	ErrClosed = errors.New("bus closed")

	// ErrLength indicates the read and write buffers differ in length.
	ErrLength = errors.New("read and write buffers differ in length")
)
