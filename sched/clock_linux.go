// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package sched

import (
	"time"

	"golang.org/x/sys/unix"
)

// SleepUntil waits on CLOCK_REALTIME with an absolute deadline.
func (realClock) SleepUntil(t time.Time) {
	ts := unix.NsecToTimespec(t.UnixNano())
	for {
		err := unix.ClockNanosleep(unix.CLOCK_REALTIME, unix.TIMER_ABSTIME, &ts, nil)
		if err != unix.EINTR {
			return
		}
	}
}
