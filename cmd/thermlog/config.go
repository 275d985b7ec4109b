// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/thermlog/board"
	"github.com/warthog618/thermlog/calib"
)

// EnvPrefix prefixes the environment variables that override the
// configuration, e.g. THERMLOG_BUS_DRIVER.
const EnvPrefix = "THERMLOG_"

func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"bus": map[string]interface{}{
			"driver":    "spidev",
			"converter": "",
			"display":   "",
			"speed":     3932160,
			"shared":    false,
		},
		"gpio": map[string]interface{}{
			"chip": board.Chip,
			"sclk": gpioName(board.SCLK),
			"mosi": gpioName(board.MOSI),
			"miso": gpioName(board.MISO),
			"cs": map[string]interface{}{
				"adc": gpioName(board.CE1),
				"lcd": gpioName(board.CE0),
			},
		},
		"lcd": map[string]interface{}{
			"chip": board.Chip,
			"rs":   gpioName(board.RS),
		},
		"sample": map[string]interface{}{
			"settle": "10ms",
			"fast":   9,
		},
		"calibration": map[string]interface{}{
			"table": calib.DefaultTable,
			"file":  "",
		},
		"config": map[string]interface{}{
			"file": "",
		},
	}
}

func gpioName(offset int) string {
	return "GPIO" + strconv.Itoa(offset)
}

// flagKeys maps command line flags to the configuration they override.
var flagKeys = map[string]string{
	"config":     "config.file",
	"driver":     "bus.driver",
	"converter":  "bus.converter",
	"display":    "bus.display",
	"shared":     "bus.shared",
	"table":      "calibration.table",
	"table-file": "calibration.file",
}

// loadConfig builds the configuration from, in decreasing priority, the
// flags set on the command line, the environment, the config file and the
// defaults.
func loadConfig(flags *pflag.FlagSet) *config.Config {
	overrides := map[string]interface{}{}
	if flags != nil {
		flags.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				setKey(overrides, key, f.Value.String())
			}
		})
	}
	def := dict.New(dict.WithMap(defaultConfig()))
	cfg := config.New(
		dict.New(dict.WithMap(overrides)),
		env.New(env.WithEnvPrefix(EnvPrefix)),
		config.WithDefault(def))
	if cfg.MustGet("config.file").String() != "" {
		cfg.Append(
			blob.NewConfigFile(cfg, "config.file", "thermlog.json", json.NewDecoder()))
	}
	return cfg.GetConfig("", config.WithMust())
}

// setKey sets the value at the dotted key, creating intermediate maps as
// required.
func setKey(m map[string]interface{}, key string, v interface{}) {
	path := strings.Split(key, ".")
	for _, p := range path[:len(path)-1] {
		n, ok := m[p].(map[string]interface{})
		if !ok {
			n = map[string]interface{}{}
			m[p] = n
		}
		m = n
	}
	m[path[len(path)-1]] = v
}

// settings is the configuration relevant to the hardware and sampling.
type settings struct {
	Driver    string
	Converter string
	Display   string
	Speed     uint32
	Shared    bool

	Chip  string
	SCLK  int
	MOSI  int
	MISO  int
	CSADC int
	CSLCD int

	LCDChip string
	RS      int

	Settle time.Duration
	Fast   int

	Table     string
	TableFile string
}

func loadSettings(cfg *config.Config) (settings, error) {
	s := settings{
		Driver:    strings.ToLower(cfg.MustGet("bus.driver").String()),
		Converter: cfg.MustGet("bus.converter").String(),
		Display:   cfg.MustGet("bus.display").String(),
		Speed:     uint32(cfg.MustGet("bus.speed").Uint()),
		Shared:    cfg.MustGet("bus.shared").Bool(),
		Chip:      cfg.MustGet("gpio.chip").String(),
		LCDChip:   cfg.MustGet("lcd.chip").String(),
		Settle:    cfg.MustGet("sample.settle").Duration(),
		Fast:      cfg.MustGet("sample.fast").Int(),
		Table:     cfg.MustGet("calibration.table").String(),
		TableFile: cfg.MustGet("calibration.file").String(),
	}
	pins := []struct {
		key string
		v   *int
	}{
		{"gpio.sclk", &s.SCLK},
		{"gpio.mosi", &s.MOSI},
		{"gpio.miso", &s.MISO},
		{"gpio.cs.adc", &s.CSADC},
		{"gpio.cs.lcd", &s.CSLCD},
		{"lcd.rs", &s.RS},
	}
	for _, p := range pins {
		name := cfg.MustGet(p.key).String()
		v, err := board.Pin(name)
		if err != nil {
			return s, fmt.Errorf("%s: %w: %s", p.key, err, name)
		}
		*p.v = v
	}
	if s.Fast < 0 {
		return s, fmt.Errorf("sample.fast: must not be negative: %d", s.Fast)
	}
	return s, nil
}
