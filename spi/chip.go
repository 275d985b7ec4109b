// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package spi

import "github.com/warthog618/gpiod"

// ChipRequester returns a Requester for lines on the chip.
func ChipRequester(c *gpiod.Chip) Requester {
	return func(offset int, output bool, value int) (Line, error) {
		opt := gpiod.LineReqOption(gpiod.AsInput)
		if output {
			opt = gpiod.AsOutput(value)
		}
		l, err := c.RequestLine(offset, opt)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}
