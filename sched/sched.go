// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package sched drives the sampling of a thermocouple on whole wall clock
// seconds, averages the samples and reports them.
//
// Each second a pass of one full and several fast samples is averaged into a
// single Sample. Every Sample refreshes the display, while only every period
// seconds is the Sample reported to the reporters.
package sched

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/edaniels/golog"
	"github.com/warthog618/thermlog"
	"github.com/warthog618/thermlog/bus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// State of the Scheduler.
type State int32

const (
	// Idle indicates the scheduler has not been started.
	Idle State = iota

	// Aligning waits for the start of the next whole second.
	Aligning

	// Sampling takes a pass of samples.
	Sampling

	// Reporting outputs the averaged sample.
	Reporting

	// Sleeping waits for the start of the next second.
	Sleeping

	// ShuttingDown closes the reporters and bus.
	ShuttingDown

	// Terminated indicates the scheduler has finished.
	Terminated
)

var stateNames = []string{
	"idle",
	"aligning",
	"sampling",
	"reporting",
	"sleeping",
	"shutting down",
	"terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Reporter outputs samples.
type Reporter interface {
	Report(s thermlog.Sample) error
	io.Closer
}

// Display is a two line character display.
type Display interface {
	Initialize() error
	Clear() error
	WriteLine(line int, text string) error
}

// PassSampler provides temperatures, in tenths of a degree.
//
// Satisfied by *Sampler.
type PassSampler interface {
	Full() (int, error)
	Pass() (int, error)
}

// Farewell is written to the display on shutdown.
const Farewell = "Bye"

// Scheduler runs the sampling loop.
type Scheduler struct {
	sampler   PassSampler
	clock     Clock
	period    time.Duration
	reporters []Reporter
	display   Display
	message   string
	closer    io.Closer
	log       golog.Logger
	observer  func(State)

	stop  atomic.Bool
	state atomic.Int32
}

// New creates a Scheduler taking samples from the sampler.
func New(sampler PassSampler, options ...Option) *Scheduler {
	s := Scheduler{
		sampler: sampler,
		clock:   RealClock(),
		period:  time.Second,
	}
	for _, option := range options {
		option(&s)
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	return &s
}

// State returns the current state of the scheduler.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stop requests the Run loop to shutdown.
//
// The request is observed between passes, so Run returns up to a second
// later. Safe to call from any goroutine.
func (s *Scheduler) Stop() {
	s.stop.Store(true)
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debugw("state", "state", st)
	if s.observer != nil {
		s.observer(st)
	}
}

// Run samples each second until stopped, then performs an orderly shutdown.
//
// Errors from the bus are fatal and end the run immediately, without
// further use of the display.
func (s *Scheduler) Run() error {
	if err := s.startDisplay(); err != nil {
		return s.fail(err)
	}
	s.setState(Aligning)
	target := s.clock.Now().Truncate(time.Second).Add(time.Second)
	s.clock.SleepUntil(target)
	next := target
	elapsed := 0
	for !s.stop.Load() {
		s.setState(Sampling)
		t, err := s.sampler.Pass()
		if err != nil {
			return s.fail(err)
		}
		sample := thermlog.Sample{Time: target, Elapsed: elapsed, Temperature: t}
		s.setState(Reporting)
		if target.Equal(next) {
			if err := s.report(sample); err != nil {
				return s.fail(err)
			}
			next = next.Add(s.period)
		}
		if s.display != nil {
			err := s.display.WriteLine(1, sample.Clock()+" "+sample.Celsius())
			if err = s.check(err); err != nil {
				return s.fail(err)
			}
		}
		s.setState(Sleeping)
		target = target.Add(time.Second)
		elapsed++
		s.clock.SleepUntil(target)
	}
	return s.shutdown(true)
}

// Once takes a single full sample, reports it and shuts down.
func (s *Scheduler) Once() (thermlog.Sample, error) {
	s.setState(Sampling)
	t, err := s.sampler.Full()
	if err != nil {
		return thermlog.Sample{}, s.fail(err)
	}
	sample := thermlog.Sample{Time: s.clock.Now(), Temperature: t}
	s.setState(Reporting)
	if err := s.report(sample); err != nil {
		return sample, s.fail(err)
	}
	return sample, s.shutdown(false)
}

func (s *Scheduler) startDisplay() error {
	if s.display == nil {
		return nil
	}
	if err := s.check(s.display.Initialize()); err != nil {
		return err
	}
	if s.message == "" {
		return nil
	}
	return s.check(s.display.WriteLine(0, s.message))
}

func (s *Scheduler) report(sample thermlog.Sample) error {
	for _, r := range s.reporters {
		if err := s.check(r.Report(sample)); err != nil {
			return err
		}
	}
	return nil
}

// check filters out errors that are not fatal, logging them instead.
func (s *Scheduler) check(err error) error {
	if err == nil || bus.IsFatal(err) {
		return err
	}
	s.log.Warnw("output failed", "error", err)
	return nil
}

func (s *Scheduler) shutdown(display bool) error {
	s.setState(ShuttingDown)
	var err error
	for _, r := range s.reporters {
		err = multierr.Append(err, r.Close())
	}
	if display && s.display != nil {
		err = multierr.Append(err, s.display.Clear())
		err = multierr.Append(err, s.display.WriteLine(1, Farewell))
	}
	if s.closer != nil {
		err = multierr.Append(err, s.closer.Close())
	}
	s.setState(Terminated)
	return err
}

// fail releases resources after a fatal error and returns the error.
func (s *Scheduler) fail(err error) error {
	s.setState(ShuttingDown)
	s.log.Errorw("fatal", "error", err)
	var cerr error
	for _, r := range s.reporters {
		cerr = multierr.Append(cerr, r.Close())
	}
	if s.closer != nil {
		cerr = multierr.Append(cerr, s.closer.Close())
	}
	if cerr != nil {
		s.log.Warnw("close failed", "error", cerr)
	}
	s.setState(Terminated)
	return err
}

// Option modifies the construction of a Scheduler.
type Option func(*Scheduler)

// WithPeriod sets the time between reports.
//
// The period is truncated to whole seconds, with a minimum of one second.
func WithPeriod(p time.Duration) Option {
	return func(s *Scheduler) {
		p = p.Truncate(time.Second)
		if p < time.Second {
			p = time.Second
		}
		s.period = p
	}
}

// WithClock sets the clock used to schedule samples.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithReporters adds reporters for the samples.
func WithReporters(r ...Reporter) Option {
	return func(s *Scheduler) {
		s.reporters = append(s.reporters, r...)
	}
}

// WithDisplay sets the display refreshed with each sample.
func WithDisplay(d Display) Option {
	return func(s *Scheduler) {
		s.display = d
	}
}

// WithMessage sets a message displayed on the first line of the display.
func WithMessage(m string) Option {
	return func(s *Scheduler) {
		s.message = m
	}
}

// WithCloser sets a resource, typically the session, closed on shutdown.
func WithCloser(c io.Closer) Option {
	return func(s *Scheduler) {
		s.closer = c
	}
}

// WithLogger sets the logger for the scheduler.
func WithLogger(l golog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithObserver sets a function called on each state transition.
func WithObserver(f func(State)) Option {
	return func(s *Scheduler) {
		s.observer = f
	}
}
