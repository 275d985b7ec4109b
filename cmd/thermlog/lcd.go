// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	lcdCmd.AddCommand(lcdInitCmd)
	lcdCmd.AddCommand(lcdMsgCmd)
	rootCmd.AddCommand(lcdCmd)
}

var (
	lcdCmd = &cobra.Command{
		Use:   "lcd",
		Short: "Control the display",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	lcdInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize and clear the display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			return a.lcdInit()
		},
	}
	lcdMsgCmd = &cobra.Command{
		Use:   "msg <text>...",
		Short: "Write a message on the first line of the display",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			return a.lcdMessage(strings.Join(args, " "))
		},
	}
)
