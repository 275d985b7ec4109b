// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package thermlog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/thermlog"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/bus/bustest"
	"go.uber.org/zap"
)

func TestFormatDeci(t *testing.T) {
	patterns := []struct {
		deci int
		str  string
	}{
		{0, "0.0"},
		{219, "21.9"},
		{-2, "-0.2"},
		{-50, "-5.0"},
		{-2701, "-270.1"},
		{5000, "500.0"},
		{thermlog.OffScale, "9999.0"},
	}
	for _, p := range patterns {
		assert.Equal(t, p.str, thermlog.FormatDeci(p.deci), p.deci)
	}
}

func TestSample(t *testing.T) {
	s := thermlog.Sample{
		Time:        time.Date(2023, 5, 17, 9, 3, 7, 0, time.Local),
		Elapsed:     12,
		Temperature: 219,
	}
	assert.Equal(t, "09:03:07", s.Clock())
	assert.Equal(t, "21.9", s.Celsius())
	assert.False(t, s.IsOffScale())

	s.Temperature = thermlog.OffScale
	assert.True(t, s.IsOffScale())
	assert.Equal(t, "9999.0", s.Celsius())
}

func newOpener() (*bustest.Opener, *bustest.Converter, *bustest.Recorder) {
	conv := bustest.NewConverter(0x0140, 0x0066)
	lcd := bustest.NewRecorder("lcd")
	o := bustest.NewOpener(map[string]bus.Conn{
		thermlog.DefaultConverter: conv,
		thermlog.DefaultDisplay:   lcd,
	})
	return o, conv, lcd
}

func TestSession(t *testing.T) {
	o, conv, lcd := newOpener()
	s := thermlog.NewSession(o, thermlog.WithLogger(zap.NewNop().Sugar()))
	assert.NotEmpty(t, s.ID)

	c, err := s.Converter()
	require.Nil(t, err)
	assert.Equal(t, conv, c)

	// held until closed
	c, err = s.Converter()
	require.Nil(t, err)
	assert.Equal(t, conv, c)

	d, err := s.Display()
	require.Nil(t, err)
	assert.Equal(t, lcd, d)
	assert.False(t, conv.Closed())

	assert.Equal(t, []bustest.Open{
		{Selector: thermlog.DefaultConverter, Mode: bus.Mode1},
		{Selector: thermlog.DefaultDisplay, Mode: bus.Mode0},
	}, o.Opens)

	assert.Nil(t, s.Close())
	assert.True(t, conv.Closed())
	assert.True(t, lcd.Closed())
	assert.Equal(t, bus.ErrClosed, s.Close())

	_, err = s.Converter()
	assert.True(t, bus.IsFatal(err))
	assert.True(t, errors.Is(err, bus.ErrClosed))
}

func TestSessionSharedBus(t *testing.T) {
	conv := bustest.NewConverter(0x0140, 0x0066)
	lcd := bustest.NewRecorder("lcd")
	o := bustest.NewOpener(map[string]bus.Conn{"adc": conv, "lcd": lcd})
	s := thermlog.NewSession(o,
		thermlog.WithConverter("adc"),
		thermlog.WithDisplay("lcd"),
		thermlog.WithSharedBus())

	_, err := s.Converter()
	require.Nil(t, err)
	_, err = s.Display()
	require.Nil(t, err)
	assert.True(t, conv.Closed())
	assert.False(t, lcd.Closed())

	_, err = s.Converter()
	require.Nil(t, err)
	assert.False(t, conv.Closed())
	assert.True(t, lcd.Closed())

	assert.Equal(t, []bustest.Open{
		{Selector: "adc", Mode: bus.Mode1},
		{Selector: "lcd", Mode: bus.Mode0},
		{Selector: "adc", Mode: bus.Mode1},
	}, o.Opens)

	assert.Nil(t, s.Close())
	assert.True(t, conv.Closed())
}

func TestSessionOpenFailure(t *testing.T) {
	o, _, lcd := newOpener()
	o.Err = bustest.ErrInjected
	s := thermlog.NewSession(o)
	c, err := s.Converter()
	assert.Nil(t, c)
	assert.True(t, bus.IsFatal(err))
	assert.True(t, errors.Is(err, bustest.ErrInjected))
	assert.Equal(t, "bus open spidev0.1: injected failure", err.Error())

	// nothing opened, so nothing to close
	assert.Nil(t, s.Close())
	assert.False(t, lcd.Closed())
}

func TestSessionCloseErrors(t *testing.T) {
	o, conv, lcd := newOpener()
	s := thermlog.NewSession(o)
	_, err := s.Converter()
	require.Nil(t, err)
	_, err = s.Display()
	require.Nil(t, err)

	// close both behind the session's back
	conv.Close()
	lcd.Close()
	err = s.Close()
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, bus.ErrClosed))
	assert.Equal(t, "bus closed; bus closed", err.Error())
}
