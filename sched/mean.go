// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package sched

import "golang.org/x/exp/constraints"

// Mean returns the arithmetic mean of the values, rounded half away from
// zero.
//
// Returns zero for an empty slice.
func Mean[T constraints.Integer](v []T) T {
	if len(v) == 0 {
		return 0
	}
	var sum int64
	for _, x := range v {
		sum += int64(x)
	}
	n := int64(len(v))
	if sum < 0 {
		return T((sum - n/2) / n)
	}
	return T((sum + n/2) / n)
}
