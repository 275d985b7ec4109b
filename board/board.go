// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package board maps Raspberry Pi header pin names to GPIO line offsets, and
// names the lines used by the 430BOOST-ADS1118 board.
package board

import (
	"errors"
	"strconv"
	"strings"
)

// Chip is the GPIO chip hosting the header lines.
const Chip = "gpiochip0"

// Lines used by the board when mounted on the J8 header.
const (
	// RS is the display register select line.
	RS = 17

	// SPI0 lines, for when the bus is bit bashed rather than driven by
	// spidev.
	SCLK = 11
	MOSI = 10
	MISO = 9
	CE0  = 8
	CE1  = 7
)

// j8 maps J8 header pin numbers to BCM line offsets.
var j8 = map[int]int{
	3:  2,
	5:  3,
	7:  4,
	8:  14,
	10: 15,
	11: 17,
	12: 18,
	13: 27,
	15: 22,
	16: 23,
	18: 24,
	19: 10,
	21: 9,
	22: 25,
	23: 11,
	24: 8,
	26: 7,
	27: 0,
	28: 1,
	29: 5,
	31: 6,
	32: 12,
	33: 13,
	35: 19,
	36: 16,
	37: 26,
	38: 20,
	40: 21,
}

// MaxGPIO is the highest line offset available on the header.
const MaxGPIO = 27

// ErrInvalid indicates the pin name does not match a known pin.
var ErrInvalid = errors.New("invalid pin name")

// Pin maps a pin name to a line offset.
//
// Pin names are case insensitive and may be of the form J8pX, GPIOX, or X,
// where X is the header pin number for J8pX and the line offset otherwise.
func Pin(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "j8p"):
		n, err := strconv.Atoi(s[3:])
		if err != nil {
			return 0, ErrInvalid
		}
		v, ok := j8[n]
		if !ok {
			return 0, ErrInvalid
		}
		return v, nil
	case strings.HasPrefix(s, "gpio"):
		s = s[4:]
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > MaxGPIO {
		return 0, ErrInvalid
	}
	return v, nil
}

// MustPin converts the name to the corresponding line offset or panics if
// that is not possible.
func MustPin(s string) int {
	v, err := Pin(s)
	if err != nil {
		panic(err)
	}
	return v
}
