// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package bus

import (
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Periph opens peripherals through the periph.io SPI port registry.
//
// The selector is a periph port name, e.g. "SPI0.1", or "" for the first
// port found.
type Periph struct {
	// Speed is the clock rate in Hz.
	Speed uint32
}

var hostInit struct {
	once sync.Once
	err  error
}

// Open initialises the periph host drivers, if not already done, and connects
// to the port.
func (p Periph) Open(selector string, mode Mode) (Conn, error) {
	hostInit.once.Do(func() {
		_, hostInit.err = host.Init()
	})
	if hostInit.err != nil {
		return nil, hostInit.err
	}
	port, err := spireg.Open(selector)
	if err != nil {
		return nil, err
	}
	speed := physic.Frequency(p.Speed) * physic.Hertz
	if p.Speed == 0 {
		speed = 3932160 * physic.Hertz
	}
	c, err := port.Connect(speed, spi.Mode(mode), 8)
	if err != nil {
		port.Close()
		return nil, err
	}
	return &periphConn{name: selector, port: port, c: c}, nil
}

type periphConn struct {
	mu   sync.Mutex
	name string
	port spi.PortCloser
	c    spi.Conn
}

func (pc *periphConn) Name() string {
	if pc.name == "" {
		return pc.port.String()
	}
	return pc.name
}

func (pc *periphConn) Tx(w, r []byte) error {
	if r != nil && len(r) != len(w) {
		return ErrLength
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.c == nil {
		return ErrClosed
	}
	return pc.c.Tx(w, r)
}

func (pc *periphConn) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := pc.Tx([]byte{b}, r[:])
	return r[0], err
}

func (pc *periphConn) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.c == nil {
		return ErrClosed
	}
	pc.c = nil
	return pc.port.Close()
}
