// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package sched

import "time"

// Clock provides wall clock time and absolute deadline waits.
type Clock interface {
	Now() time.Time

	// SleepUntil blocks until the wall clock reaches t.
	SleepUntil(t time.Time)
}

// RealClock returns the system wall clock.
func RealClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
