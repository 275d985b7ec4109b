// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package pin provides output control of a single GPIO line, such as the
// register select line of the display.
package pin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/gpiod"
	"go.uber.org/multierr"
)

// Consumer is the label attached to lines requested by thermlog.
const Consumer = "thermlog"

// Pin is a GPIO line requested as an output.
type Pin struct {
	mu     sync.Mutex
	chip   *gpiod.Chip
	line   *gpiod.Line
	offset int
	high   bool
}

// Request requests the line on the named chip as an output, initially low.
func Request(chip string, offset int) (*Pin, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer(Consumer))
	if err != nil {
		return nil, err
	}
	l, err := c.RequestLine(offset, gpiod.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("error requesting %s line %d: %w", chip, offset, err)
	}
	return &Pin{chip: c, line: l, offset: offset}, nil
}

// Offset returns the offset of the line on its chip.
func (p *Pin) Offset() int {
	return p.offset
}

// SetLine drives the line high or low.
func (p *Pin) SetLine(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return ErrClosed
	}
	v := 0
	if high {
		v = 1
	}
	if err := p.line.SetValue(v); err != nil {
		return err
	}
	p.high = high
	return nil
}

// High returns the level most recently set.
func (p *Pin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Close releases the line and the chip.
func (p *Pin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return ErrClosed
	}
	err := multierr.Combine(p.line.Close(), p.chip.Close())
	p.line = nil
	p.chip = nil
	return err
}

// ErrClosed indicates the pin has been closed.
var ErrClosed = errors.New("pin closed")
