// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package thermlog measures a type K thermocouple using the TI ADS1118 on a
// 430BOOST-ADS1118 board, and reports the temperature to the console, a CSV
// log, a serial port and the board's character display.
//
// The Session owns the bus connections to the converter and the display.
// Sampling, averaging and reporting are performed by the sched package.
//
// Example of use:
//
//  s := thermlog.NewSession(bus.Spidev{})
//  defer s.Close()
//  seq := ads1118.New(s)
//  tbl, _ := calib.Builtin(calib.DefaultTable)
//  sch := sched.New(sched.NewSampler(seq, tbl))
//  sample, err := sch.Once()
//
package thermlog

import (
	"strconv"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/calib"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sample is an averaged temperature measurement.
type Sample struct {
	// Time is the scheduled time of the measurement.
	Time time.Time

	// Elapsed is the number of seconds since sampling started.
	Elapsed int

	// Temperature is in tenths of a degree Celsius.
	Temperature int
}

// OffScale is the temperature reported when the thermocouple code is outside
// the calibrated range.
const OffScale = calib.OffScale

// Clock returns the local time of the sample as HH:MM:SS.
func (s Sample) Clock() string {
	return s.Time.Format("15:04:05")
}

// Celsius returns the temperature formatted with one decimal place.
func (s Sample) Celsius() string {
	return FormatDeci(s.Temperature)
}

// IsOffScale returns true if the temperature is outside the calibrated range.
func (s Sample) IsOffScale() bool {
	return s.Temperature == OffScale
}

// FormatDeci formats a value in tenths with one decimal place.
func FormatDeci(d int) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	return sign + strconv.Itoa(d/10) + "." + strconv.Itoa(d%10)
}

// Default peripheral selectors for the Raspberry Pi spidev driver.
const (
	DefaultConverter = "spidev0.1"
	DefaultDisplay   = "spidev0.0"
)

// Bus modes of the peripherals.
const (
	ConverterMode = bus.Mode1
	DisplayMode   = bus.Mode0
)

// Session owns the bus connections to the converter and display.
//
// Connections are opened on first use and held until Close.
// If the peripherals share a bus, opening one closes the other, so the bus
// can be reconfigured for the other peripheral's mode.
type Session struct {
	// ID identifies the session in logs.
	ID string

	mu        sync.Mutex
	opener    bus.Opener
	log       golog.Logger
	converter string
	display   string
	shared    bool
	adc       bus.Conn
	lcd       bus.Conn
	closed    bool
}

// NewSession creates a Session that opens peripherals using the opener.
func NewSession(o bus.Opener, options ...SessionOption) *Session {
	s := Session{
		ID:        uuid.NewString(),
		opener:    o,
		converter: DefaultConverter,
		display:   DefaultDisplay,
	}
	for _, option := range options {
		option(&s)
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	return &s
}

// Converter returns the connection to the converter, opening it if
// necessary.
func (s *Session) Converter() (bus.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(&s.adc, &s.lcd, s.converter, ConverterMode)
}

// Display returns the connection to the display, opening it if necessary.
func (s *Session) Display() (bus.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(&s.lcd, &s.adc, s.display, DisplayMode)
}

func (s *Session) open(c, other *bus.Conn, sel string, mode bus.Mode) (bus.Conn, error) {
	if s.closed {
		return nil, &bus.FatalError{Op: "open", Device: sel, Err: bus.ErrClosed}
	}
	if *c != nil {
		return *c, nil
	}
	if s.shared && *other != nil {
		name := (*other).Name()
		s.log.Debugw("releasing shared bus", "session", s.ID, "device", name)
		err := (*other).Close()
		*other = nil
		if err != nil {
			return nil, &bus.FatalError{Op: "close", Device: name, Err: err}
		}
	}
	conn, err := bus.Open(s.opener, sel, mode)
	if err != nil {
		s.log.Errorw("open failed", "session", s.ID, "device", sel, "error", err)
		return nil, err
	}
	s.log.Debugw("opened", "session", s.ID, "device", conn.Name(), "mode", mode)
	*c = conn
	return conn, nil
}

// Close closes any open connections.
//
// The session cannot be reused once closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return bus.ErrClosed
	}
	s.closed = true
	var err error
	for _, c := range []*bus.Conn{&s.adc, &s.lcd} {
		if *c != nil {
			err = multierr.Append(err, (*c).Close())
			*c = nil
		}
	}
	s.log.Debugw("closed", "session", s.ID)
	return err
}

// SessionOption modifies the construction of a Session.
type SessionOption func(*Session)

// WithConverter sets the selector for the converter.
func WithConverter(sel string) SessionOption {
	return func(s *Session) {
		s.converter = sel
	}
}

// WithDisplay sets the selector for the display.
func WithDisplay(sel string) SessionOption {
	return func(s *Session) {
		s.display = sel
	}
}

// WithSharedBus indicates the converter and display cannot be open at the
// same time.
func WithSharedBus() SessionOption {
	return func(s *Session) {
		s.shared = true
	}
}

// WithLogger sets the logger for the session.
func WithLogger(l golog.Logger) SessionOption {
	return func(s *Session) {
		s.log = l
	}
}
