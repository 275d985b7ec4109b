// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package bustest provides simulated bus peripherals for testing code that
// uses the bus package.
package bustest

import (
	"errors"
	"sync"

	"github.com/warthog618/thermlog/bus"
)

// Converter simulates an ADS1118 on the bus.
//
// Each exchange returns the conversion requested by the previous exchange,
// so the first exchange after opening returns a stale zero code.
// Conversions requested with the temperature sensor bit set return Internal,
// others return External.
type Converter struct {
	mu       sync.Mutex
	Internal uint16
	External uint16

	// Writes holds the bytes written by each exchange.
	Writes [][]byte

	// FailAfter, if non-zero, fails exchanges after that many succeed.
	FailAfter int

	pending []byte
	closed  bool
}

// NewConverter creates a simulated converter returning the given codes.
func NewConverter(internal, external uint16) *Converter {
	return &Converter{Internal: internal, External: external}
}

// Name returns the name of the simulated device.
func (c *Converter) Name() string {
	return "sim-ads1118"
}

// Tx simulates a converter transaction.
func (c *Converter) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return bus.ErrClosed
	}
	if len(w) != len(r) {
		return bus.ErrLength
	}
	if c.FailAfter != 0 && len(c.Writes) >= c.FailAfter {
		return ErrInjected
	}
	c.Writes = append(c.Writes, append([]byte(nil), w...))
	for i := range r {
		r[i] = 0
	}
	if c.pending != nil && len(r) >= 2 {
		code := c.External
		if c.pending[1]&0x10 != 0 {
			code = c.Internal
		}
		r[0] = byte(code >> 8)
		r[1] = byte(code)
		if len(r) >= 4 {
			// config register readback
			r[2] = c.pending[0] &^ 0x80
			r[3] = c.pending[1]
		}
	}
	if len(w) >= 2 {
		c.pending = append([]byte(nil), w[:2]...)
	}
	return nil
}

// Transfer exchanges a single byte.
func (c *Converter) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := c.Tx([]byte{b}, r[:])
	return r[0], err
}

// Close marks the converter closed.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return bus.ErrClosed
	}
	c.closed = true
	return nil
}

// Closed returns true once the converter has been closed.
func (c *Converter) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Transactions returns the number of exchanges performed.
func (c *Converter) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Writes)
}

// Reopen clears the closed state. The pending conversion survives, as it
// does in the device.
func (c *Converter) Reopen() {
	c.mu.Lock()
	c.closed = false
	c.mu.Unlock()
}

// Recorder records single byte writes, as used by the display.
type Recorder struct {
	mu     sync.Mutex
	name   string
	Bytes  []byte
	closed bool
}

// NewRecorder creates a Recorder with the given name.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name}
}

// Name returns the name of the recorder.
func (r *Recorder) Name() string {
	return r.name
}

// Tx records the bytes written.
func (r *Recorder) Tx(w, rx []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return bus.ErrClosed
	}
	if rx != nil && len(rx) != len(w) {
		return bus.ErrLength
	}
	r.Bytes = append(r.Bytes, w...)
	return nil
}

// Transfer records the byte written.
func (r *Recorder) Transfer(b byte) (byte, error) {
	return 0, r.Tx([]byte{b}, nil)
}

// Close marks the recorder closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return bus.ErrClosed
	}
	r.closed = true
	return nil
}

// Closed returns true once the recorder has been closed.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Reopen clears the closed state.
func (r *Recorder) Reopen() {
	r.mu.Lock()
	r.closed = false
	r.mu.Unlock()
}

// Opener hands out the registered connections by selector.
type Opener struct {
	mu    sync.Mutex
	conns map[string]bus.Conn

	// Opens records the selector and mode of each successful open.
	Opens []Open

	// Err, if set, is returned by every open.
	Err error
}

// Open records an open request.
type Open struct {
	Selector string
	Mode     bus.Mode
}

// NewOpener creates an Opener serving the provided connections.
func NewOpener(conns map[string]bus.Conn) *Opener {
	return &Opener{conns: conns}
}

// Open returns the connection registered for the selector.
func (o *Opener) Open(selector string, mode bus.Mode) (bus.Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	c, ok := o.conns[selector]
	if !ok {
		return nil, ErrNoDevice
	}
	if r, ok := c.(reopener); ok {
		r.Reopen()
	}
	o.Opens = append(o.Opens, Open{selector, mode})
	return c, nil
}

type reopener interface {
	Reopen()
}

var (
	// ErrInjected is returned by simulated devices when failure is requested.
	ErrInjected = errors.New("injected failure")

	// ErrNoDevice indicates the selector has no registered connection.
	ErrNoDevice = errors.New("no such device")
)
