// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// A utility to measure and log thermocouple temperatures using the
// 430BOOST-ADS1118 board.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "thermlog",
	Short: "thermlog reads a thermocouple",
	Long: "thermlog reads a type K thermocouple using the ADS1118 on a 430BOOST-ADS1118 board.\n" +
		"Without a subcommand it takes a single reading and prints it in degrees Celsius.",
	Args:          cobra.NoArgs,
	RunE:          single,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootOpts = struct {
	WithTime bool
	Verbose  bool
}{}

func init() {
	rootCmd.Flags().BoolVarP(&rootOpts.WithTime, "with-time", "t", false, "prefix the reading with the time")
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "log diagnostics to stderr")
	pf.StringP("config", "c", "", "JSON configuration file")
	pf.String("driver", "", "bus driver: spidev, periph or gpio")
	pf.String("converter", "", "converter selector")
	pf.String("display", "", "display selector")
	pf.Bool("shared", false, "converter and display cannot be open at the same time")
	pf.String("table", "", "name of the builtin calibration table")
	pf.String("table-file", "", "YAML calibration table file")
}

func single(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	return a.single(rootOpts.WithTime)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		die(err)
	}
}

func die(err error) {
	fmt.Fprintln(os.Stderr, "thermlog: "+err.Error())
	os.Exit(1)
}
