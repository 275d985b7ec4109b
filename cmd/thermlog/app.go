// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/edaniels/golog"
	"github.com/spf13/cobra"
	"github.com/warthog618/thermlog"
	"github.com/warthog618/thermlog/ads1118"
	"github.com/warthog618/thermlog/calib"
	"github.com/warthog618/thermlog/lcd"
	"github.com/warthog618/thermlog/sched"
	"github.com/warthog618/thermlog/sink"
	"go.uber.org/zap"
)

// app holds the configuration and the means to reach the hardware.
type app struct {
	settings settings
	out      io.Writer
	log      golog.Logger
	clock    sched.Clock
	sleep    func(time.Duration)

	openHardware func(settings) (*hardware, error)
	requestRS    func(settings) (registerSelect, error)
}

func newApp(cmd *cobra.Command) (*app, error) {
	s, err := loadSettings(loadConfig(cmd.Flags()))
	if err != nil {
		return nil, err
	}
	var log golog.Logger = zap.NewNop().Sugar()
	if rootOpts.Verbose {
		log = golog.NewDevelopmentLogger("thermlog")
	}
	return &app{
		settings:     s,
		out:          os.Stdout,
		log:          log,
		clock:        sched.RealClock(),
		sleep:        time.Sleep,
		openHardware: openHardware,
		requestRS:    requestRS,
	}, nil
}

func (a *app) table() (*calib.Table, error) {
	if a.settings.TableFile != "" {
		return calib.Load(a.settings.TableFile)
	}
	return calib.Builtin(a.settings.Table)
}

// rig is the set of components assembled for a command.
type rig struct {
	session *thermlog.Session
	sampler *sched.Sampler
	display *lcd.LCD
	closers closeAll
}

func (r *rig) Close() error {
	return r.closers.Close()
}

// assemble opens the bus and builds the components required for a command.
//
// The sampler is only built if a calibration table is provided.
func (a *app) assemble(tbl *calib.Table, withDisplay bool) (*rig, error) {
	hw, err := a.openHardware(a.settings)
	if err != nil {
		return nil, err
	}
	opts := []thermlog.SessionOption{
		thermlog.WithConverter(hw.converter),
		thermlog.WithDisplay(hw.display),
		thermlog.WithLogger(a.log),
	}
	if a.settings.Shared {
		opts = append(opts, thermlog.WithSharedBus())
	}
	s := thermlog.NewSession(hw.opener, opts...)
	r := rig{session: s, closers: closeAll{s}}
	if withDisplay {
		rs, err := a.requestRS(a.settings)
		if err != nil {
			hw.closers.Close()
			s.Close()
			return nil, err
		}
		r.display = lcd.New(s, rs, lcd.WithSleep(a.sleep))
		r.closers = append(r.closers, rs)
	}
	r.closers = append(r.closers, hw.closers...)
	a.log.Debugw("assembled",
		"session", s.ID,
		"converter", hw.converter,
		"display", hw.display)
	if tbl == nil {
		return &r, nil
	}
	seq := ads1118.New(s,
		ads1118.WithSettle(a.settings.Settle),
		ads1118.WithSleep(a.sleep))
	r.sampler = sched.NewSampler(seq, tbl, sched.WithFastSamples(a.settings.Fast))
	a.log.Debugw("calibration", "session", s.ID, "table", tbl.Name, "version", tbl.Version)
	return &r, nil
}

// single takes and prints a single reading.
func (a *app) single(withTime bool) error {
	tbl, err := a.table()
	if err != nil {
		return err
	}
	r, err := a.assemble(tbl, false)
	if err != nil {
		return err
	}
	format := sink.Plain
	if withTime {
		format = sink.Timed
	}
	s := sched.New(r.sampler,
		sched.WithClock(a.clock),
		sched.WithReporters(sink.NewConsole(a.out, format)),
		sched.WithCloser(r),
		sched.WithLogger(a.log))
	_, err = s.Once()
	return err
}

type logOptions struct {
	Period  string
	CSV     string
	Message string
	Serial  string
	Baud    int
}

// parsePeriod returns the reporting period in seconds, falling back to one
// second if the period is not a positive integer.
func (a *app) parsePeriod(p string) time.Duration {
	if p == "" {
		return time.Second
	}
	n, err := strconv.Atoi(p)
	if err != nil || n < 1 {
		a.log.Warnw("invalid period, using 1 second", "period", p)
		fmt.Fprintf(os.Stderr, "thermlog: invalid period %q, using 1 second\n", p)
		return time.Second
	}
	return time.Duration(n) * time.Second
}

// record samples and reports until stopped.
//
// The started callback is passed the scheduler before it is run, so the
// caller can arrange to stop it.
func (a *app) record(opts logOptions, started func(*sched.Scheduler)) error {
	period := a.parsePeriod(opts.Period)
	tbl, err := a.table()
	if err != nil {
		return err
	}
	r, err := a.assemble(tbl, true)
	if err != nil {
		return err
	}
	// nothing is created until both peripherals are known to be reachable
	if _, err = r.session.Converter(); err != nil {
		r.Close()
		return err
	}
	if _, err = r.session.Display(); err != nil {
		r.Close()
		return err
	}
	reporters := []sched.Reporter{sink.NewConsole(a.out, sink.Logged)}
	fail := func(err error) error {
		for _, rep := range reporters {
			rep.Close()
		}
		r.Close()
		return err
	}
	if opts.CSV != "" {
		c, err := sink.CreateFile(opts.CSV)
		if err != nil {
			return fail(err)
		}
		reporters = append(reporters, c)
	}
	if opts.Serial != "" {
		c, err := sink.OpenSerial(opts.Serial, opts.Baud)
		if err != nil {
			return fail(err)
		}
		reporters = append(reporters, c)
	}
	s := sched.New(r.sampler,
		sched.WithClock(a.clock),
		sched.WithPeriod(period),
		sched.WithReporters(reporters...),
		sched.WithDisplay(r.display),
		sched.WithMessage(opts.Message),
		sched.WithCloser(r),
		sched.WithLogger(a.log))
	if started != nil {
		started(s)
	}
	a.log.Infow("logging", "session", r.session.ID, "period", period, "csv", opts.CSV)
	if err = s.Run(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, sched.Farewell)
	return nil
}

// lcdInit initializes and clears the display.
func (a *app) lcdInit() error {
	r, err := a.assemble(nil, true)
	if err != nil {
		return err
	}
	return firstErr(r.display.Initialize(), r.Close())
}

// lcdMessage writes the text on the first line of the display.
func (a *app) lcdMessage(text string) error {
	r, err := a.assemble(nil, true)
	if err != nil {
		return err
	}
	return firstErr(r.display.WriteLine(0, text), r.Close())
}

func firstErr(ee ...error) error {
	for _, err := range ee {
		if err != nil {
			return err
		}
	}
	return nil
}
