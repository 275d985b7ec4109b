// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package sched

import (
	"github.com/warthog618/thermlog/ads1118"
	"github.com/warthog618/thermlog/calib"
)

// Converter performs pipelined conversions.
//
// Satisfied by *ads1118.Sequencer.
type Converter interface {
	ConfigureAndRead(m ads1118.Mode, ch ads1118.Channel) (uint16, error)
	Settle()
}

// Sampler takes temperature samples from a thermocouple.
//
// A full sample measures the cold junction and the thermocouple, while a fast
// sample only measures the thermocouple, reusing the cold junction offset
// from the most recent full sample.
type Sampler struct {
	conv   Converter
	tbl    *calib.Table
	ch     ads1118.Channel
	fast   int
	offset int
	buf    []int
}

// DefaultFastSamples is the number of fast samples following the full
// sample in each pass.
const DefaultFastSamples = 9

// NewSampler creates a Sampler that converts codes using the table.
func NewSampler(conv Converter, tbl *calib.Table, options ...SamplerOption) *Sampler {
	s := Sampler{
		conv: conv,
		tbl:  tbl,
		ch:   ads1118.Channel0,
		fast: DefaultFastSamples,
	}
	for _, option := range options {
		option(&s)
	}
	s.buf = make([]int, 0, s.fast+1)
	return &s
}

// Full takes a full sample and returns the temperature in tenths of a
// degree.
//
// The converter is left with an external conversion pending, as required by
// Fast.
func (s *Sampler) Full() (int, error) {
	// the code returned is stale
	if _, err := s.conv.ConfigureAndRead(ads1118.InternalSensor, s.ch); err != nil {
		return 0, err
	}
	s.conv.Settle()
	local, err := s.conv.ConfigureAndRead(ads1118.ExternalSignal, s.ch)
	if err != nil {
		return 0, err
	}
	s.conv.Settle()
	raw, err := s.conv.ConfigureAndRead(ads1118.ExternalSignal, s.ch)
	if err != nil {
		return 0, err
	}
	s.offset = calib.Compensate(local)
	return s.tbl.Compensated(raw, s.offset), nil
}

// Fast takes a fast sample and returns the temperature in tenths of a
// degree.
func (s *Sampler) Fast() (int, error) {
	s.conv.Settle()
	raw, err := s.conv.ConfigureAndRead(ads1118.ExternalSignal, s.ch)
	if err != nil {
		return 0, err
	}
	return s.tbl.Compensated(raw, s.offset), nil
}

// Pass takes a full sample followed by the fast samples and returns their
// mean temperature in tenths of a degree.
//
// If any sample is off scale then the pass is off scale.
func (s *Sampler) Pass() (int, error) {
	s.buf = s.buf[:0]
	t, err := s.Full()
	if err != nil {
		return 0, err
	}
	s.buf = append(s.buf, t)
	for i := 0; i < s.fast; i++ {
		t, err = s.Fast()
		if err != nil {
			return 0, err
		}
		s.buf = append(s.buf, t)
	}
	for _, t := range s.buf {
		if t == calib.OffScale {
			return calib.OffScale, nil
		}
	}
	return Mean(s.buf), nil
}

// Offset returns the cold junction offset from the most recent full sample.
func (s *Sampler) Offset() int {
	return s.offset
}

// SamplerOption modifies the construction of a Sampler.
type SamplerOption func(*Sampler)

// WithChannel sets the converter input the thermocouple is connected to.
func WithChannel(ch ads1118.Channel) SamplerOption {
	return func(s *Sampler) {
		s.ch = ch
	}
}

// WithFastSamples sets the number of fast samples in each pass.
func WithFastSamples(n int) SamplerOption {
	return func(s *Sampler) {
		if n >= 0 {
			s.fast = n
		}
	}
}
