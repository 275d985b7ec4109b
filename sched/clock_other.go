// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build !linux
// +build !linux

package sched

import "time"

func (realClock) SleepUntil(t time.Time) {
	time.Sleep(time.Until(t))
}
