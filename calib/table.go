// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package calib

import (
	"embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OffScale is the temperature, in tenths of a degree, returned for codes
// outside the range of a table.
const OffScale = 99990

// DefaultTable is the name of the builtin table used when none is specified.
const DefaultTable = "type-k-wide"

// Breakpoint is a point on the thermocouple response curve.
type Breakpoint struct {
	// Code is the compensated ADC code, as a two's complement value.
	Code int `yaml:"code"`

	// Temp is the temperature in whole degrees.
	Temp int `yaml:"temp"`
}

// Segment linearly interpolates between two adjacent breakpoints.
type Segment struct {
	CodeLow  int
	CodeHigh int
	TempLow  int
	TempSpan int
	CodeSpan int
}

// Table maps compensated codes to temperatures.
type Table struct {
	Name        string
	Version     int
	Description string
	Breakpoints []Breakpoint
	Segments    []Segment
}

type tableFile struct {
	Name        string       `yaml:"name"`
	Version     int          `yaml:"version"`
	Description string       `yaml:"description"`
	Breakpoints []Breakpoint `yaml:"breakpoints"`
}

//go:embed tables/*.yaml
var builtin embed.FS

// Parse decodes a YAML table definition.
func Parse(data []byte) (*Table, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTable, err)
	}
	return NewTable(tf.Name, tf.Version, tf.Breakpoints, WithDescription(tf.Description))
}

// Load reads a YAML table definition from a file.
func Load(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Builtin returns the named builtin table.
func Builtin(name string) (*Table, error) {
	data, err := builtin.ReadFile(path.Join("tables", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: unknown table '%s'", ErrTable, name)
	}
	return Parse(data)
}

// Names returns the names of the builtin tables.
func Names() []string {
	entries, _ := builtin.ReadDir("tables")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// TableOption modifies the construction of a Table.
type TableOption func(*Table)

// WithDescription sets a human readable description of the table.
func WithDescription(d string) TableOption {
	return func(t *Table) {
		t.Description = d
	}
}

// NewTable creates a table from the breakpoints.
//
// The breakpoints must be strictly increasing in both code and temperature,
// and the codes must be representable as 16 bit two's complement values.
func NewTable(name string, version int, bps []Breakpoint, options ...TableOption) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrTable)
	}
	if len(bps) < 2 {
		return nil, fmt.Errorf("%w: %s requires at least two breakpoints", ErrTable, name)
	}
	t := Table{
		Name:        name,
		Version:     version,
		Breakpoints: append([]Breakpoint(nil), bps...),
		Segments:    make([]Segment, 0, len(bps)-1),
	}
	for _, option := range options {
		option(&t)
	}
	for i, bp := range bps {
		if bp.Code < math.MinInt16 || bp.Code > math.MaxInt16 {
			return nil, fmt.Errorf("%w: %s breakpoint %d code %d out of range", ErrTable, name, i, bp.Code)
		}
		if i == 0 {
			continue
		}
		prev := bps[i-1]
		if bp.Code <= prev.Code {
			return nil, fmt.Errorf("%w: %s breakpoint %d code not increasing", ErrTable, name, i)
		}
		if bp.Temp <= prev.Temp {
			return nil, fmt.Errorf("%w: %s breakpoint %d temperature not increasing", ErrTable, name, i)
		}
		t.Segments = append(t.Segments, Segment{
			CodeLow:  prev.Code,
			CodeHigh: bp.Code,
			TempLow:  prev.Temp,
			TempSpan: bp.Temp - prev.Temp,
			CodeSpan: bp.Code - prev.Code,
		})
	}
	return &t, nil
}

// Range returns the lowest and highest temperatures covered by the table, in
// whole degrees.
func (t *Table) Range() (int, int) {
	return t.Breakpoints[0].Temp, t.Breakpoints[len(t.Breakpoints)-1].Temp
}

// Temperature converts a compensated code to tenths of a degree.
//
// The code is interpreted as a two's complement value.
// The result is truncated towards zero, and is OffScale for codes outside
// the table.
func (t *Table) Temperature(code uint16) int {
	c := int(int16(code))
	s := t.Segments
	// first segment with CodeHigh >= c
	i := sort.Search(len(s), func(i int) bool {
		return s[i].CodeHigh >= c
	})
	if i == len(s) {
		return OffScale
	}
	seg := s[i]
	// only reachable for the first segment, which is closed at CodeLow.
	if c < seg.CodeLow {
		return OffScale
	}
	return (10*seg.TempLow*seg.CodeSpan + 10*seg.TempSpan*(c-seg.CodeLow)) / seg.CodeSpan
}

// Compensated converts a raw thermocouple code to tenths of a degree after
// applying the cold junction offset.
//
// The sum is wrapped to 16 bits before conversion.
func (t *Table) Compensated(raw uint16, offset int) int {
	return t.Temperature(uint16(int(raw) + offset))
}

// ErrTable indicates a table definition is invalid.
var ErrTable = errors.New("invalid calibration table")
