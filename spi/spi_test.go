// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package spi_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/spi"
)

// fakeLine records the values written to it and plays back a bit stream
// when read.
type fakeLine struct {
	offset int
	output bool
	values []int
	stream []int
	closed bool
}

func (l *fakeLine) SetValue(v int) error {
	if l.closed {
		return errClosed
	}
	l.values = append(l.values, v)
	return nil
}

func (l *fakeLine) Value() (int, error) {
	if l.closed {
		return 0, errClosed
	}
	if len(l.stream) == 0 {
		return 0, nil
	}
	v := l.stream[0]
	l.stream = l.stream[1:]
	return v, nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

var errClosed = errors.New("line closed")

type fakeChip struct {
	lines map[int]*fakeLine
	fail  int
}

func newFakeChip() *fakeChip {
	return &fakeChip{lines: map[int]*fakeLine{}, fail: -1}
}

func (c *fakeChip) request(offset int, output bool, value int) (spi.Line, error) {
	if offset == c.fail {
		return nil, errors.New("busy")
	}
	l := &fakeLine{offset: offset, output: output}
	if output {
		l.values = []int{value}
	}
	c.lines[offset] = l
	return l, nil
}

func bits(b ...byte) []int {
	var bb []int
	for _, v := range b {
		for i := 7; i >= 0; i-- {
			bb = append(bb, int(v>>uint(i))&0x01)
		}
	}
	return bb
}

// edges counts the transitions in the recorded values.
func edges(values []int) int {
	n := 0
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			n++
		}
	}
	return n
}

func TestNew(t *testing.T) {
	c := newFakeChip()
	b, err := spi.New(c.request, 11, 10, 9)
	require.Nil(t, err)
	require.NotNil(t, b)
	assert.True(t, c.lines[11].output)
	assert.True(t, c.lines[10].output)
	assert.False(t, c.lines[9].output)
	assert.Nil(t, b.Close())
	assert.True(t, c.lines[11].closed)
	assert.True(t, c.lines[10].closed)
	assert.True(t, c.lines[9].closed)
	assert.Equal(t, spi.ErrClosed, b.Close())

	// shared lines
	b, err = spi.New(c.request, 11, 11, 9)
	assert.Equal(t, spi.ErrSharedLine, err)
	assert.Nil(t, b)

	// request failure releases lines already requested
	c = newFakeChip()
	c.fail = 9
	b, err = spi.New(c.request, 11, 10, 9)
	assert.NotNil(t, err)
	assert.Nil(t, b)
	assert.True(t, c.lines[11].closed)
	assert.True(t, c.lines[10].closed)
}

func TestTx(t *testing.T) {
	patterns := []struct {
		name string
		mode bus.Mode
	}{
		{"mode0", bus.Mode0},
		{"mode1", bus.Mode1},
		{"mode2", bus.Mode2},
		{"mode3", bus.Mode3},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			c := newFakeChip()
			b, err := spi.New(c.request, 11, 10, 9, spi.WithTclk(1))
			require.Nil(t, err)
			defer b.Close()
			d, err := b.Open("7", p.mode)
			require.Nil(t, err)
			defer d.Close()
			assert.Equal(t, "gpio-spi-cs7", d.Name())

			c.lines[9].stream = bits(0x3c, 0x81)
			r := make([]byte, 2)
			err = d.Tx([]byte{0xa5, 0x0f}, r)
			require.Nil(t, err)
			assert.Equal(t, []byte{0x3c, 0x81}, r)

			// mosi carries the written bits, after the initial value.
			assert.Equal(t, bits(0xa5, 0x0f), c.lines[10].values[1:])

			// chip select starts inactive, then pulses active for the exchange.
			assert.Equal(t, []int{1, 0, 1}, c.lines[7].values)

			// clock idles at the cpol level and toggles twice per bit.
			clk := c.lines[11].values
			assert.Equal(t, p.mode.CPOL(), clk[len(clk)-1])
			assert.Equal(t, 32, edges(clk[1:]))
		}
		t.Run(p.name, tf)
	}
}

func TestTransfer(t *testing.T) {
	c := newFakeChip()
	b, err := spi.New(c.request, 11, 10, 9, spi.WithTclk(1))
	require.Nil(t, err)
	defer b.Close()
	d, err := b.OpenDevice(8, bus.Mode0)
	require.Nil(t, err)
	c.lines[9].stream = bits(0x42)
	v, err := d.Transfer(0x01)
	assert.Nil(t, err)
	assert.Equal(t, byte(0x42), v)

	// nil read buffer discards
	err = d.Tx([]byte{0x02}, nil)
	assert.Nil(t, err)

	err = d.Tx([]byte{0x02}, make([]byte, 2))
	assert.Equal(t, bus.ErrLength, err)

	assert.Nil(t, d.Close())
	assert.Equal(t, spi.ErrClosed, d.Close())
	_, err = d.Transfer(0x01)
	assert.Equal(t, spi.ErrClosed, err)
}

func TestOpen(t *testing.T) {
	c := newFakeChip()
	b, err := spi.New(c.request, 11, 10, 9)
	require.Nil(t, err)

	d, err := b.Open("ce0", bus.Mode0)
	assert.NotNil(t, err)
	assert.Nil(t, d)

	b.Close()
	d, err = b.Open("8", bus.Mode0)
	assert.Equal(t, spi.ErrClosed, err)
	assert.Nil(t, d)
}
