// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/warthog618/thermlog/sched"
	"github.com/warthog618/thermlog/sink"
)

func init() {
	logCmd.Flags().StringVarP(&logOpts.Message, "msg", "m", "", "message for the first line of the display")
	logCmd.Flags().StringVarP(&logOpts.Serial, "serial", "s", "", "also write the log to the serial port")
	logCmd.Flags().IntVarP(&logOpts.Baud, "baud", "b", sink.DefaultBaudRate, "serial port baud rate")
	rootCmd.AddCommand(logCmd)
}

var (
	logCmd = &cobra.Command{
		Use:   "log [flags] <period> [csv-file]",
		Short: "Log the temperature",
		Long: "Sample the temperature every second, displaying it and reporting it every period seconds.\n" +
			"Reports are written to stdout and optionally to a CSV file and a serial port.\n" +
			"Runs until interrupted.",
		Args:                  cobra.RangeArgs(1, 2),
		RunE:                  record,
		DisableFlagsInUseLine: true,
	}
	logOpts = logOptions{}
)

func record(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	opts := logOpts
	opts.Period = args[0]
	if len(args) > 1 {
		opts.CSV = args[1]
	}
	return a.record(opts, stopOnSignal)
}

// stopOnSignal stops the scheduler when the process is interrupted or
// terminated.
func stopOnSignal(s *sched.Scheduler) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		s.Stop()
	}()
}
