// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package bus_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/bus/bustest"
)

func TestModes(t *testing.T) {
	patterns := []struct {
		mode bus.Mode
		cpol int
		cpha int
	}{
		{bus.Mode0, 0, 0},
		{bus.Mode1, 0, 1},
		{bus.Mode2, 1, 0},
		{bus.Mode3, 1, 1},
	}
	for _, p := range patterns {
		assert.Equal(t, p.cpol, p.mode.CPOL(), p.mode)
		assert.Equal(t, p.cpha, p.mode.CPHA(), p.mode)
	}
}

func TestOpen(t *testing.T) {
	conv := bustest.NewConverter(0, 0)
	o := bustest.NewOpener(map[string]bus.Conn{"spidev0.1": conv})

	c, err := bus.Open(o, "spidev0.1", bus.Mode1)
	require.Nil(t, err)
	assert.Equal(t, conv, c)
	require.Len(t, o.Opens, 1)
	assert.Equal(t, bustest.Open{Selector: "spidev0.1", Mode: bus.Mode1}, o.Opens[0])

	// unknown device
	c, err = bus.Open(o, "spidev9.9", bus.Mode1)
	assert.Nil(t, c)
	require.NotNil(t, err)
	assert.True(t, bus.IsFatal(err))
	assert.True(t, errors.Is(err, bustest.ErrNoDevice))
	var fe *bus.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "open", fe.Op)
	assert.Equal(t, "spidev9.9", fe.Device)
	assert.Equal(t, "bus open spidev9.9: no such device", err.Error())

	// already fatal errors are not rewrapped
	inner := &bus.FatalError{Op: "configure", Err: bustest.ErrInjected}
	o.Err = inner
	_, err = bus.Open(o, "spidev0.1", bus.Mode1)
	assert.Equal(t, inner, err)
	assert.Equal(t, "bus configure: injected failure", err.Error())
}

func TestOpenerFunc(t *testing.T) {
	var sel string
	var mode bus.Mode
	o := bus.OpenerFunc(func(s string, m bus.Mode) (bus.Conn, error) {
		sel = s
		mode = m
		return nil, bustest.ErrNoDevice
	})
	_, err := bus.Open(o, "SPI0.0", bus.Mode0)
	assert.True(t, bus.IsFatal(err))
	assert.Equal(t, "SPI0.0", sel)
	assert.Equal(t, bus.Mode0, mode)
}

func TestExchange(t *testing.T) {
	conv := bustest.NewConverter(0x0140, 0x0066)

	rx, err := bus.Exchange(conv, []byte{0x8b, 0x9a, 0x8b, 0x9a})
	require.Nil(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, rx)

	rx, err = bus.Exchange(conv, []byte{0x8b, 0x8a, 0x8b, 0x8a})
	require.Nil(t, err)
	assert.Equal(t, []byte{0x01, 0x40, 0x0b, 0x9a}, rx)

	rx, err = bus.Exchange(conv, []byte{0x8b, 0x8a, 0x8b, 0x8a})
	require.Nil(t, err)
	assert.Equal(t, []byte{0x00, 0x66, 0x0b, 0x8a}, rx)

	conv.Close()
	rx, err = bus.Exchange(conv, []byte{0x8b, 0x8a, 0x8b, 0x8a})
	assert.Nil(t, rx)
	assert.True(t, bus.IsFatal(err))
	assert.True(t, errors.Is(err, bus.ErrClosed))
	assert.Equal(t, "bus exchange sim-ads1118: bus closed", err.Error())
}

func TestTransfer(t *testing.T) {
	r := bustest.NewRecorder("spidev0.0")
	rx, err := bus.Transfer(r, 0x80)
	require.Nil(t, err)
	assert.Equal(t, byte(0), rx)
	_, err = bus.Transfer(r, 'H')
	require.Nil(t, err)
	assert.Equal(t, []byte{0x80, 'H'}, r.Bytes)

	r.Close()
	_, err = bus.Transfer(r, 'i')
	assert.True(t, bus.IsFatal(err))
	assert.True(t, errors.Is(err, bus.ErrClosed))
	assert.Equal(t, "bus exchange spidev0.0: bus closed", err.Error())
	assert.Equal(t, []byte{0x80, 'H'}, r.Bytes)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, bus.IsFatal(nil))
	assert.False(t, bus.IsFatal(bustest.ErrInjected))
	assert.True(t, bus.IsFatal(&bus.FatalError{Op: "exchange", Err: bustest.ErrInjected}))
}
