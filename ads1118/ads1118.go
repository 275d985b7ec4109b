// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package ads1118 drives a TI ADS1118 analog to digital converter with
// integrated temperature sensor.
//
// The converter is pipelined. Each transaction programs the next conversion
// while returning the result of the conversion programmed by the previous
// transaction, so the code returned by ConfigureAndRead belongs to the
// previous call.
package ads1118

import (
	"sync"
	"time"

	"github.com/warthog618/thermlog/bus"
)

// Mode selects what the converter measures.
type Mode int

const (
	// InternalSensor measures the integrated cold junction temperature sensor.
	InternalSensor Mode = iota

	// ExternalSignal measures the differential input selected by the Channel.
	ExternalSignal
)

func (m Mode) String() string {
	if m == InternalSensor {
		return "internal"
	}
	return "external"
}

// Channel selects the differential input pair.
type Channel int

const (
	// Channel0 is AIN0 (positive) and AIN1 (negative).
	Channel0 Channel = iota

	// Channel1 is AIN2 (positive) and AIN3 (negative).
	Channel1
)

// Gain is the programmable gain amplifier setting, named by full scale range.
type Gain uint16

const (
	FS6144 Gain = iota << 9
	FS4096
	FS2048
	FS1024
	FS512
	FS256
)

// DataRate is the conversion rate in samples per second.
type DataRate uint16

const (
	SPS8 DataRate = iota << 5
	SPS16
	SPS32
	SPS64
	SPS128
	SPS250
	SPS475
	SPS860
)

// config register fields.
const (
	startBit  uint16 = 0x8000
	muxShift         = 12
	singleBit uint16 = 0x0100
	tsBit     uint16 = 0x0010
	pullUpBit uint16 = 0x0008
	nopValid  uint16 = 0x0002

	// mux values for the differential pairs.
	muxAIN0AIN1 uint16 = 0
	muxAIN2AIN3 uint16 = 3
)

// Config describes a single shot conversion.
type Config struct {
	Channel  Channel
	Mode     Mode
	Gain     Gain
	DataRate DataRate
	PullUp   bool
}

// Word returns the configuration register value for the conversion,
// including the single shot start bit.
func (c Config) Word() uint16 {
	mux := muxAIN0AIN1
	if c.Channel == Channel1 {
		mux = muxAIN2AIN3
	}
	w := startBit | mux<<muxShift | uint16(c.Gain) | singleBit |
		uint16(c.DataRate) | nopValid
	if c.Mode == InternalSensor {
		w |= tsBit
	}
	if c.PullUp {
		w |= pullUpBit
	}
	return w
}

// Port provides the converter connection.
//
// The Port may close and reopen the connection between calls, e.g. when the
// bus is shared with another peripheral.
type Port interface {
	Converter() (bus.Conn, error)
}

// Sequencer issues conversion transactions and tracks the pipeline.
type Sequencer struct {
	mu     sync.Mutex
	port   Port
	settle time.Duration
	sleep  func(time.Duration)
	gain   Gain
	rate   DataRate
	pullUp bool

	primed  bool
	pending Mode
}

// DefaultSettle is the time allowed for a conversion to complete.
const DefaultSettle = 10 * time.Millisecond

// New creates a Sequencer using the port.
//
// The default settings suit a type K thermocouple: a full scale range of
// ±0.256V, 128 samples per second and the DOUT pull-up enabled.
func New(port Port, options ...Option) *Sequencer {
	s := Sequencer{
		port:   port,
		settle: DefaultSettle,
		sleep:  time.Sleep,
		gain:   FS256,
		rate:   SPS128,
		pullUp: true,
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// Config returns the conversion configuration the sequencer uses for the
// mode and channel.
func (s *Sequencer) Config(m Mode, ch Channel) Config {
	return Config{
		Channel:  ch,
		Mode:     m,
		Gain:     s.gain,
		DataRate: s.rate,
		PullUp:   s.pullUp,
	}
}

// ConfigureAndRead requests a conversion and returns the result of the
// previously requested conversion.
//
// The word is sent twice in a four byte transaction, and the conversion
// result is taken from the first two bytes received, MSB first.
// The first call after creation returns a stale code.
func (s *Sequencer) ConfigureAndRead(m Mode, ch Channel) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.port.Converter()
	if err != nil {
		return 0, err
	}
	w := s.Config(m, ch).Word()
	hi := byte(w>>8) | 0x80
	lo := byte(w)
	rx, err := bus.Exchange(c, []byte{hi, lo, hi, lo})
	if err != nil {
		return 0, err
	}
	s.primed = true
	s.pending = m
	return uint16(rx[0])<<8 | uint16(rx[1]), nil
}

// Settle waits for the requested conversion to complete.
func (s *Sequencer) Settle() {
	s.sleep(s.settle)
}

// Pending returns the mode of the conversion in flight, which determines
// the meaning of the code returned by the next ConfigureAndRead.
//
// Returns false if no conversion has been requested.
func (s *Sequencer) Pending() (Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.primed
}

// Option modifies the construction of a Sequencer.
type Option func(*Sequencer)

// WithSettle sets the delay between requesting a conversion and reading it.
func WithSettle(d time.Duration) Option {
	return func(s *Sequencer) {
		s.settle = d
	}
}

// WithSleep replaces the function used to wait for conversions.
func WithSleep(f func(time.Duration)) Option {
	return func(s *Sequencer) {
		s.sleep = f
	}
}

// WithGain sets the full scale range.
func WithGain(g Gain) Option {
	return func(s *Sequencer) {
		s.gain = g
	}
}

// WithDataRate sets the conversion rate.
func WithDataRate(r DataRate) Option {
	return func(s *Sequencer) {
		s.rate = r
	}
}

// WithoutPullUp disables the DOUT pull-up.
func WithoutPullUp() Option {
	return func(s *Sequencer) {
		s.pullUp = false
	}
}
