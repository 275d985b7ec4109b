// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package lcd drives the two line character display on the
// 430BOOST-ADS1118 board.
//
// The display controller is an ST7032 class device written over SPI, with a
// separate register select line distinguishing commands from data.
package lcd

import (
	"strconv"
	"sync"
	"time"

	"github.com/warthog618/thermlog/bus"
)

// Port provides the display connection.
type Port interface {
	Display() (bus.Conn, error)
}

// RegisterSelect controls the register select line.
//
// Low selects the instruction register, high the data register.
type RegisterSelect interface {
	SetLine(high bool) error
}

// Columns is the number of characters on each line.
const Columns = 16

// instructions
const (
	cmdClear      = 0x01
	cmdHome       = 0x02
	cmdEntryMode  = 0x06
	cmdDisplayOn  = 0x0c
	cmdWake       = 0x30
	cmdFunctionIS = 0x39
	cmdOscillator = 0x14
	cmdPower      = 0x56
	cmdFollower   = 0x6d
	cmdContrast   = 0x70
	cmdLine0      = 0x80
	cmdLine1      = 0xc0
)

var initSequence = []byte{
	cmdWake,
	cmdFunctionIS,
	cmdOscillator,
	cmdPower,
	cmdFollower,
	cmdContrast,
	cmdDisplayOn,
	cmdEntryMode,
	cmdClear,
}

// controller execution times.
const (
	initDelay  = 20 * time.Millisecond
	clearDelay = 2 * time.Millisecond
)

// LCD is the character display.
type LCD struct {
	mu    sync.Mutex
	port  Port
	rs    RegisterSelect
	sleep func(time.Duration)
}

// New creates an LCD.
func New(port Port, rs RegisterSelect, options ...Option) *LCD {
	l := LCD{port: port, rs: rs, sleep: time.Sleep}
	for _, option := range options {
		option(&l)
	}
	return &l
}

// Initialize wakes and configures the controller, and clears the display.
func (l *LCD) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rs.SetLine(true); err != nil {
		return err
	}
	for _, c := range initSequence {
		if err := l.command(c); err != nil {
			return err
		}
	}
	l.sleep(initDelay)
	return nil
}

// Clear blanks the display and returns the cursor home.
func (l *LCD) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.command(cmdClear); err != nil {
		return err
	}
	l.sleep(clearDelay)
	if err := l.command(cmdHome); err != nil {
		return err
	}
	l.sleep(clearDelay)
	return nil
}

// WriteLine writes text from the start of the line.
//
// Lines are numbered from 0. Text beyond the width of the display is
// discarded, and characters outside printable ASCII are displayed as '?'.
func (l *LCD) WriteLine(line int, text string) error {
	if line < 0 || line > 1 {
		return ErrorLineRange{line}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := byte(cmdLine0)
	if line == 1 {
		addr = cmdLine1
	}
	if err := l.command(addr); err != nil {
		return err
	}
	n := 0
	for _, r := range text {
		if n == Columns {
			break
		}
		if r < ' ' || r > '~' {
			r = '?'
		}
		if err := l.data(byte(r)); err != nil {
			return err
		}
		n++
	}
	return nil
}

func (l *LCD) command(c byte) error {
	if err := l.rs.SetLine(false); err != nil {
		return err
	}
	return l.write(c)
}

func (l *LCD) data(c byte) error {
	if err := l.rs.SetLine(true); err != nil {
		return err
	}
	return l.write(c)
}

func (l *LCD) write(c byte) error {
	conn, err := l.port.Display()
	if err != nil {
		return err
	}
	_, err = bus.Transfer(conn, c)
	return err
}

// Option modifies the construction of an LCD.
type Option func(*LCD)

// WithSleep replaces the function used to wait for the controller.
func WithSleep(f func(time.Duration)) Option {
	return func(l *LCD) {
		l.sleep = f
	}
}

// ErrorLineRange indicates the line number is not on the display.
type ErrorLineRange struct {
	Line int
}

func (e ErrorLineRange) Error() string {
	return "line " + strconv.Itoa(e.Line) + " out of range"
}
