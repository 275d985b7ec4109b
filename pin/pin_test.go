// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package pin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/thermlog/mockup"
	"github.com/warthog618/thermlog/pin"
)

func newChip(t *testing.T) *mockup.Chip {
	t.Helper()
	if err := mockup.IsSupported(); err != nil {
		t.Skip(err)
	}
	c, err := mockup.New(8)
	if err != nil {
		t.Skip(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRequest(t *testing.T) {
	c := newChip(t)
	p, err := pin.Request(c.Name, 3)
	require.Nil(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Offset())
	assert.False(t, p.High())
	v, err := c.Level(3)
	assert.Nil(t, err)
	assert.Equal(t, 0, v)

	// line already requested
	p2, err := pin.Request(c.Name, 3)
	assert.NotNil(t, err)
	assert.Nil(t, p2)

	assert.Nil(t, p.Close())

	// released on close
	p2, err = pin.Request(c.Name, 3)
	assert.Nil(t, err)
	require.NotNil(t, p2)
	p2.Close()
}

func TestRequestErrors(t *testing.T) {
	c := newChip(t)
	patterns := []struct {
		name   string
		chip   string
		offset int
	}{
		{"unknown chip", "nonexistent", 0},
		{"offset", c.Name, 8},
		{"negative", c.Name, -1},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			l, err := pin.Request(p.chip, p.offset)
			assert.NotNil(t, err)
			assert.Nil(t, l)
		}
		t.Run(p.name, tf)
	}
}

func TestSetLine(t *testing.T) {
	c := newChip(t)
	p, err := pin.Request(c.Name, 2)
	require.Nil(t, err)
	defer p.Close()
	for _, high := range []bool{true, false, true, true, false} {
		err = p.SetLine(high)
		require.Nil(t, err)
		assert.Equal(t, high, p.High())
		v, err := c.Level(2)
		assert.Nil(t, err)
		xv := 0
		if high {
			xv = 1
		}
		assert.Equal(t, xv, v)
	}
}

func TestClose(t *testing.T) {
	c := newChip(t)
	p, err := pin.Request(c.Name, 1)
	require.Nil(t, err)
	assert.Nil(t, p.Close())
	assert.Equal(t, pin.ErrClosed, p.Close())
	assert.Equal(t, pin.ErrClosed, p.SetLine(true))
}
