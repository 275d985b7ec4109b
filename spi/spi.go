// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package spi provides a bit bashed SPI bus using GPIO lines.
//
// The clock and data lines are shared by all peripherals on the bus, with
// each peripheral selected by its own active low chip select line.
// It is not related to the SPI device drivers provided by Linux, and is
// useful where the spidev driver is not available or the peripherals are
// wired to arbitrary GPIO pins.
package spi

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/warthog618/thermlog/bus"
)

// Line is a requested GPIO line.
type Line interface {
	SetValue(int) error
	Value() (int, error)
	Close() error
}

// Requester requests a GPIO line.
//
// Outputs are requested with the provided initial value.
type Requester func(offset int, output bool, value int) (Line, error)

// Bus represents an SPI bus driven by three GPIO lines.
type Bus struct {
	mu  sync.Mutex
	req Requester
	// time between clock edges (i.e. half the cycle time)
	tclk time.Duration
	sclk Line
	mosi Line
	miso Line
	cpol int
	// the device currently selected, if any.
	active *Device
}

// New creates a Bus.
func New(req Requester, sclk, mosi, miso int, options ...Option) (*Bus, error) {
	b := Bus{req: req}
	for _, option := range options {
		option(&b)
	}
	if b.tclk == 0 {
		// default to 1MHz full cycle.
		b.tclk = 500 * time.Nanosecond
	}
	var err error
	defer func() {
		if err != nil {
			b.Close()
		}
	}()
	if sclk == mosi || sclk == miso || mosi == miso {
		err = ErrSharedLine
		return nil, err
	}
	b.sclk, err = req(sclk, true, 0)
	if err != nil {
		return nil, err
	}
	b.mosi, err = req(mosi, true, 0)
	if err != nil {
		return nil, err
	}
	b.miso, err = req(miso, false, 0)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Close releases the bus lines.
//
// Devices opened on the bus should be closed first.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sclk == nil && b.mosi == nil && b.miso == nil {
		return ErrClosed
	}
	for _, l := range []*Line{&b.sclk, &b.mosi, &b.miso} {
		if *l != nil {
			(*l).Close()
			*l = nil
		}
	}
	return nil
}

// Open requests the chip select line identified by the selector, which is a
// line offset, and returns a Device that communicates using the mode.
func (b *Bus) Open(selector string, mode bus.Mode) (bus.Conn, error) {
	cs, err := strconv.ParseUint(selector, 10, 32)
	if err != nil {
		return nil, err
	}
	d, err := b.OpenDevice(int(cs), mode)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// OpenDevice requests the chip select line and returns a Device that
// communicates using the mode.
func (b *Bus) OpenDevice(cs int, mode bus.Mode) (*Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sclk == nil {
		return nil, ErrClosed
	}
	// chip selects are active low, so hold them high until needed.
	l, err := b.req(cs, true, 1)
	if err != nil {
		return nil, err
	}
	return &Device{
		b:    b,
		csz:  l,
		cs:   cs,
		cpol: mode.CPOL(),
		cpha: mode.CPHA(),
	}, nil
}

// Device is a peripheral on the bus.
type Device struct {
	b    *Bus
	csz  Line
	cs   int
	cpol int
	cpha int
}

// Name identifies the device by its chip select line.
func (d *Device) Name() string {
	return "gpio-spi-cs" + strconv.Itoa(d.cs)
}

// Close releases the chip select line.
func (d *Device) Close() error {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	if d.csz == nil {
		return ErrClosed
	}
	err := d.csz.Close()
	d.csz = nil
	if d.b.active == d {
		d.b.active = nil
	}
	return err
}

// Tx performs a full duplex exchange, MSB first.
//
// The device is selected for the duration of the exchange.
func (d *Device) Tx(w, r []byte) error {
	if r != nil && len(r) != len(w) {
		return bus.ErrLength
	}
	b := d.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if d.csz == nil || b.sclk == nil {
		return ErrClosed
	}
	if err := b.selectDevice(d); err != nil {
		return err
	}
	err := d.csz.SetValue(0)
	if err != nil {
		return err
	}
	for i, wb := range w {
		var rb byte
		for bit := 7; bit >= 0; bit-- {
			v, err := b.clockBit(int(wb>>uint(bit))&0x01, d.cpha)
			if err != nil {
				d.csz.SetValue(1)
				return err
			}
			rb = rb<<1 | byte(v)
		}
		if r != nil {
			r[i] = rb
		}
	}
	time.Sleep(b.tclk)
	return d.csz.SetValue(1)
}

// Transfer exchanges a single byte.
func (d *Device) Transfer(w byte) (byte, error) {
	var r [1]byte
	err := d.Tx([]byte{w}, r[:])
	return r[0], err
}

// selectDevice sets the clock idle level to suit the device.
func (b *Bus) selectDevice(d *Device) error {
	if b.active == d {
		return nil
	}
	if err := b.sclk.SetValue(d.cpol); err != nil {
		return err
	}
	b.cpol = d.cpol
	b.active = d
	time.Sleep(b.tclk)
	return nil
}

// clockBit clocks out a data bit on Mosi while clocking in a data bit from
// Miso.
//
// Starts and ends with the clock at its idle level.
func (b *Bus) clockBit(v int, cpha int) (int, error) {
	idle := b.cpol
	active := idle ^ 1
	if cpha == 0 {
		// data valid before the leading edge, sampled on it.
		if err := b.mosi.SetValue(v); err != nil {
			return 0, err
		}
		time.Sleep(b.tclk)
		if err := b.sclk.SetValue(active); err != nil {
			return 0, err
		}
		r, err := b.miso.Value()
		if err != nil {
			return 0, err
		}
		time.Sleep(b.tclk)
		return r, b.sclk.SetValue(idle)
	}
	// data changes on the leading edge, sampled on the trailing edge.
	if err := b.sclk.SetValue(active); err != nil {
		return 0, err
	}
	if err := b.mosi.SetValue(v); err != nil {
		return 0, err
	}
	time.Sleep(b.tclk)
	if err := b.sclk.SetValue(idle); err != nil {
		return 0, err
	}
	r, err := b.miso.Value()
	if err != nil {
		return 0, err
	}
	time.Sleep(b.tclk)
	return r, nil
}

// Option specifies a construction option for the Bus.
type Option func(*Bus)

// WithTclk sets the clock period for the Bus.
//
// Note that this is the half-cycle period.
func WithTclk(tclk time.Duration) Option {
	return func(b *Bus) {
		b.tclk = tclk
	}
}

var (
	// ErrClosed indicates the bus or device is closed.
	ErrClosed = errors.New("closed")

	// ErrSharedLine indicates the same line was provided for more than one
	// bus signal.
	ErrSharedLine = errors.New("bus lines must be distinct")
)
