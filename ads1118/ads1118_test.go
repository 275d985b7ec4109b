// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package ads1118_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/thermlog/ads1118"
	"github.com/warthog618/thermlog/bus"
	"github.com/warthog618/thermlog/bus/bustest"
)

type port struct {
	c   bus.Conn
	err error
	n   int
}

func (p *port) Converter() (bus.Conn, error) {
	p.n++
	if p.err != nil {
		return nil, p.err
	}
	return p.c, nil
}

func TestConfigWord(t *testing.T) {
	patterns := []struct {
		name string
		cfg  ads1118.Config
		word uint16
	}{
		{
			"ch0 external",
			ads1118.Config{
				Channel:  ads1118.Channel0,
				Mode:     ads1118.ExternalSignal,
				Gain:     ads1118.FS256,
				DataRate: ads1118.SPS128,
				PullUp:   true,
			},
			0x8b8a,
		},
		{
			"ch1 external",
			ads1118.Config{
				Channel:  ads1118.Channel1,
				Mode:     ads1118.ExternalSignal,
				Gain:     ads1118.FS256,
				DataRate: ads1118.SPS128,
				PullUp:   true,
			},
			0xbb8a,
		},
		{
			"ch0 internal",
			ads1118.Config{
				Channel:  ads1118.Channel0,
				Mode:     ads1118.InternalSensor,
				Gain:     ads1118.FS256,
				DataRate: ads1118.SPS128,
				PullUp:   true,
			},
			0x8b9a,
		},
		{
			"ch1 internal",
			ads1118.Config{
				Channel:  ads1118.Channel1,
				Mode:     ads1118.InternalSensor,
				Gain:     ads1118.FS256,
				DataRate: ads1118.SPS128,
				PullUp:   true,
			},
			0xbb9a,
		},
		{
			"power on defaults",
			ads1118.Config{
				Channel:  ads1118.Channel0,
				Mode:     ads1118.ExternalSignal,
				Gain:     ads1118.FS2048,
				DataRate: ads1118.SPS128,
				PullUp:   true,
			},
			0x858a,
		},
		{
			"fast no pullup",
			ads1118.Config{
				Channel:  ads1118.Channel0,
				Mode:     ads1118.ExternalSignal,
				Gain:     ads1118.FS6144,
				DataRate: ads1118.SPS860,
			},
			0x81e2,
		},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			assert.Equal(t, p.word, p.cfg.Word())
		}
		t.Run(p.name, tf)
	}
}

func TestConfigureAndRead(t *testing.T) {
	conv := bustest.NewConverter(0x0140, 0x0066)
	p := &port{c: conv}
	s := ads1118.New(p)

	_, ok := s.Pending()
	assert.False(t, ok)

	// priming returns a stale code
	v, err := s.ConfigureAndRead(ads1118.InternalSensor, ads1118.Channel0)
	require.Nil(t, err)
	assert.Equal(t, uint16(0), v)
	m, ok := s.Pending()
	assert.True(t, ok)
	assert.Equal(t, ads1118.InternalSensor, m)

	// returns the internal conversion requested previously
	v, err = s.ConfigureAndRead(ads1118.ExternalSignal, ads1118.Channel0)
	require.Nil(t, err)
	assert.Equal(t, uint16(0x0140), v)
	m, _ = s.Pending()
	assert.Equal(t, ads1118.ExternalSignal, m)

	v, err = s.ConfigureAndRead(ads1118.ExternalSignal, ads1118.Channel0)
	require.Nil(t, err)
	assert.Equal(t, uint16(0x0066), v)

	v, err = s.ConfigureAndRead(ads1118.ExternalSignal, ads1118.Channel1)
	require.Nil(t, err)
	assert.Equal(t, uint16(0x0066), v)

	assert.Equal(t, 4, p.n)
	assert.Equal(t, [][]byte{
		{0x8b, 0x9a, 0x8b, 0x9a},
		{0x8b, 0x8a, 0x8b, 0x8a},
		{0x8b, 0x8a, 0x8b, 0x8a},
		{0xbb, 0x8a, 0xbb, 0x8a},
	}, conv.Writes)
}

func TestConfigureAndReadOptions(t *testing.T) {
	conv := bustest.NewConverter(0, 0)
	s := ads1118.New(&port{c: conv},
		ads1118.WithGain(ads1118.FS2048),
		ads1118.WithDataRate(ads1118.SPS8),
		ads1118.WithoutPullUp())
	_, err := s.ConfigureAndRead(ads1118.ExternalSignal, ads1118.Channel0)
	require.Nil(t, err)
	assert.Equal(t, [][]byte{{0x85, 0x02, 0x85, 0x02}}, conv.Writes)
	assert.Equal(t, uint16(0x8502), s.Config(ads1118.ExternalSignal, ads1118.Channel0).Word())
}

func TestConfigureAndReadErrors(t *testing.T) {
	// port failure is passed through unchanged
	perr := &bus.FatalError{Op: "open", Device: "spidev0.1", Err: bustest.ErrNoDevice}
	s := ads1118.New(&port{err: perr})
	_, err := s.ConfigureAndRead(ads1118.ExternalSignal, ads1118.Channel0)
	assert.Equal(t, perr, err)
	_, ok := s.Pending()
	assert.False(t, ok)

	// exchange failure is fatal
	conv := bustest.NewConverter(0x0140, 0x0066)
	conv.FailAfter = 1
	s = ads1118.New(&port{c: conv})
	_, err = s.ConfigureAndRead(ads1118.InternalSensor, ads1118.Channel0)
	require.Nil(t, err)
	_, err = s.ConfigureAndRead(ads1118.ExternalSignal, ads1118.Channel0)
	require.NotNil(t, err)
	assert.True(t, bus.IsFatal(err))
	assert.True(t, errors.Is(err, bustest.ErrInjected))

	// pipeline state reflects the last successful request
	m, ok := s.Pending()
	assert.True(t, ok)
	assert.Equal(t, ads1118.InternalSensor, m)
}

func TestSettle(t *testing.T) {
	var slept []time.Duration
	sleep := func(d time.Duration) {
		slept = append(slept, d)
	}
	s := ads1118.New(&port{}, ads1118.WithSleep(sleep))
	s.Settle()
	assert.Equal(t, []time.Duration{ads1118.DefaultSettle}, slept)

	slept = nil
	s = ads1118.New(&port{}, ads1118.WithSleep(sleep), ads1118.WithSettle(time.Millisecond))
	s.Settle()
	s.Settle()
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, slept)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "internal", ads1118.InternalSensor.String())
	assert.Equal(t, "external", ads1118.ExternalSignal.String())
}
