// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package sink provides reporters that output temperature samples to the
// console, CSV files and serial ports.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/warthog618/thermlog"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// Format selects the layout of console output.
type Format int

const (
	// Logged includes the time and elapsed seconds, e.g. "09:03:07 12 21.9".
	Logged Format = iota

	// Plain is the temperature alone, e.g. "21.9".
	Plain

	// Timed includes the time, e.g. "09:03:07 21.9".
	Timed
)

// Console writes samples as lines of text.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, f Format) *Console {
	return &Console{w: w, format: f}
}

// Report writes the sample.
func (c *Console) Report(s thermlog.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	switch c.format {
	case Plain:
		_, err = fmt.Fprintln(c.w, s.Celsius())
	case Timed:
		_, err = fmt.Fprintln(c.w, s.Clock(), s.Celsius())
	default:
		_, err = fmt.Fprintln(c.w, s.Clock(), s.Elapsed, s.Celsius())
	}
	return err
}

// Close does nothing, as the Console does not own the writer.
func (c *Console) Close() error {
	return nil
}

// Header is the first row of the CSV output.
var Header = []string{"Time HH:MM:SS", "Elapsed Sec", "Temp C"}

// CSV writes samples as comma separated rows, flushing after each row.
type CSV struct {
	mu   sync.Mutex
	w    *csv.Writer
	c    io.Closer
	name string
}

// CSVOption modifies the construction of a CSV.
type CSVOption func(*CSV)

// WithCRLF terminates rows with CRLF rather than LF.
func WithCRLF() CSVOption {
	return func(c *CSV) {
		c.w.UseCRLF = true
	}
}

// NewCSV creates a CSV writing to wc and writes the header.
//
// The CSV takes ownership of wc, which is closed with the CSV.
func NewCSV(name string, wc io.WriteCloser, options ...CSVOption) (*CSV, error) {
	c := CSV{w: csv.NewWriter(wc), c: wc, name: name}
	for _, option := range options {
		option(&c)
	}
	if err := c.write(Header); err != nil {
		wc.Close()
		return nil, err
	}
	return &c, nil
}

// CreateFile creates, or truncates, the named file and writes the header.
func CreateFile(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewCSV(path, f)
}

// DefaultBaudRate is the baud rate used by OpenSerial if none is specified.
const DefaultBaudRate = 115200

// OpenSerial opens the serial port and writes the header.
//
// A zero baud rate selects DefaultBaudRate.
func OpenSerial(port string, baud int) (*CSV, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return NewCSV(port, p, WithCRLF())
}

// Name returns the name of the output.
func (c *CSV) Name() string {
	return c.name
}

// Report writes the sample as a row.
func (c *CSV) Report(s thermlog.Sample) error {
	return c.write([]string{s.Clock(), strconv.Itoa(s.Elapsed), s.Celsius()})
}

func (c *CSV) write(row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.c == nil {
		return ErrClosed
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes any pending output and closes the underlying writer.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.c == nil {
		return ErrClosed
	}
	c.w.Flush()
	err := multierr.Combine(c.w.Error(), c.c.Close())
	c.c = nil
	return err
}

// ErrClosed indicates the output has been closed.
var ErrClosed = errors.New("closed")
