// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/thermlog"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/pin"
	"github.com/warthog618/thermlog/spi"
	"go.uber.org/multierr"
)

// hardware is the bus the peripherals are opened on.
type hardware struct {
	opener    bus.Opener
	converter string
	display   string
	closers   closeAll
}

// openHardware prepares the bus driver selected by the settings.
func openHardware(s settings) (*hardware, error) {
	hw := hardware{converter: s.Converter, display: s.Display}
	switch s.Driver {
	case "spidev":
		hw.opener = bus.Spidev{Speed: s.Speed}
		hw.defaults(thermlog.DefaultConverter, thermlog.DefaultDisplay)
	case "periph":
		hw.opener = bus.Periph{Speed: s.Speed}
		hw.defaults("SPI0.1", "SPI0.0")
	case "gpio":
		c, err := gpiod.NewChip(s.Chip, gpiod.WithConsumer(pin.Consumer))
		if err != nil {
			return nil, &bus.FatalError{Op: "open", Device: s.Chip, Err: err}
		}
		b, err := spi.New(spi.ChipRequester(c), s.SCLK, s.MOSI, s.MISO)
		if err != nil {
			c.Close()
			return nil, &bus.FatalError{Op: "open", Device: s.Chip, Err: err}
		}
		hw.opener = b
		hw.closers = closeAll{b, c}
		hw.defaults(strconv.Itoa(s.CSADC), strconv.Itoa(s.CSLCD))
	default:
		return nil, fmt.Errorf("unknown bus driver: %s", s.Driver)
	}
	return &hw, nil
}

func (hw *hardware) defaults(converter, display string) {
	if hw.converter == "" {
		hw.converter = converter
	}
	if hw.display == "" {
		hw.display = display
	}
}

// registerSelect is the display register select line.
type registerSelect interface {
	SetLine(high bool) error
	io.Closer
}

func requestRS(s settings) (registerSelect, error) {
	p, err := pin.Request(s.LCDChip, s.RS)
	if err != nil {
		return nil, &bus.FatalError{Op: "open", Device: s.LCDChip, Err: err}
	}
	return p, nil
}

// closeAll closes a set of resources in order.
type closeAll []io.Closer

func (cc closeAll) Close() error {
	var err error
	for _, c := range cc {
		err = multierr.Append(err, c.Close())
	}
	return err
}
