// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package spi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiod"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/mockup"
	"github.com/warthog618/thermlog/spi"
)

func TestChipRequester(t *testing.T) {
	if err := mockup.IsSupported(); err != nil {
		t.Skip(err)
	}
	m, err := mockup.New(6)
	if err != nil {
		t.Skip(err)
	}
	defer m.Close()
	c, err := gpiod.NewChip(m.Name, gpiod.WithConsumer("spi-test"))
	require.Nil(t, err)
	defer c.Close()

	// sclk 0, mosi 1, miso 2, cs 3
	b, err := spi.New(spi.ChipRequester(c), 0, 1, 2, spi.WithTclk(time.Microsecond))
	require.Nil(t, err)
	defer b.Close()
	d, err := b.OpenDevice(3, bus.Mode1)
	require.Nil(t, err)

	// deselected and idle
	v, err := m.Level(3)
	assert.Nil(t, err)
	assert.Equal(t, 1, v)
	v, err = m.Level(0)
	assert.Nil(t, err)
	assert.Equal(t, 0, v)

	require.Nil(t, m.Pull(2, true))
	r := make([]byte, 2)
	err = d.Tx([]byte{0x8b, 0x8a}, r)
	require.Nil(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, r)

	require.Nil(t, m.Pull(2, false))
	err = d.Tx([]byte{0x8b, 0x8a}, r)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, r)

	// deselected after the transaction
	v, err = m.Level(3)
	assert.Nil(t, err)
	assert.Equal(t, 1, v)
	assert.Nil(t, d.Close())
}
