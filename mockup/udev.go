// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package mockup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"
)

// udevTimeout bounds the wait for the chip device to be added.
var udevTimeout = time.Second

// udevMonitor watches for gpio-mockup chips being added.
type udevMonitor struct {
	conn  *netlink.UEventConn
	queue chan netlink.UEvent
	errs  chan error
	quit  chan struct{}
}

func newUdevMonitor() (*udevMonitor, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, fmt.Errorf("unable to connect to netlink uevent socket: %w", err)
	}
	action := "add"
	matcher := &netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "gpio",
			"DEVPATH":   "/devices/platform/gpio-mockup\\.\\d+/gpiochip\\d+",
		},
	}
	m := udevMonitor{
		conn:  conn,
		queue: make(chan netlink.UEvent),
		errs:  make(chan error),
	}
	m.quit = conn.Monitor(m.queue, m.errs, matcher)
	return &m, nil
}

// chip waits for the chip to be added and returns its description.
func (m *udevMonitor) chip(lines int) (*Chip, error) {
	timeout := time.After(udevTimeout)
	for {
		select {
		case evt := <-m.queue:
			devpath := evt.Env["DEVNAME"]
			if !strings.HasPrefix(devpath, "/dev/") {
				devpath = "/dev/" + devpath
			}
			name := strings.TrimPrefix(devpath, "/dev/")
			var num int
			if _, err := fmt.Sscanf(name, "gpiochip%d", &num); err != nil {
				return nil, fmt.Errorf("failed to parse chip num: %w", err)
			}
			return &Chip{
				Name:      name,
				Label:     "gpio-mockup-A",
				Lines:     lines,
				DevPath:   devpath,
				DbgfsPath: fmt.Sprintf("%sgpiochip%d/", dbgfsRoot, num),
			}, nil
		case err := <-m.errs:
			return nil, err
		case <-timeout:
			return nil, errors.New("timeout waiting for udev events")
		}
	}
}

func (m *udevMonitor) Close() {
	close(m.quit)
	m.conn.Close()
}
