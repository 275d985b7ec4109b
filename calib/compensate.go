// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package calib converts ADS1118 codes from a thermocouple into temperatures.
//
// Compensate converts the code from the converter's internal temperature
// sensor into a cold junction offset, in thermocouple codes.
// The offset is added to the thermocouple code and the sum is converted to a
// temperature using a piecewise linear calibration Table.
package calib

// junction anchors the thermocouple code equivalent of the cold junction
// temperature, in whole degrees.
type junction struct {
	temp int
	code int
}

var junctionAnchors = []junction{
	{0, 0x0000},
	{5, 0x0019},
	{10, 0x0033},
	{20, 0x0066},
	{30, 0x009a},
	{40, 0x00ce},
	{50, 0x0103},
	{60, 0x0138},
	{80, 0x01a2},
	{125, 0x0290},
}

// internal sensor resolution.
const (
	sensorShift  = 4  // 14 bit result is left justified
	lsbPerDegree = 32 // 0.03125 degrees per LSB
)

// JunctionTemperature returns the temperature, in whole degrees, encoded in a
// code read from the internal temperature sensor.
//
// Fractional degrees are truncated.
func JunctionTemperature(code uint16) int {
	return int(int16(code)) / sensorShift / lsbPerDegree
}

// Compensate returns the thermocouple code offset corresponding to the
// cold junction temperature encoded in the internal sensor code.
//
// The offset is zero if the junction is outside 0 to 125 degrees.
func Compensate(code uint16) int {
	t := JunctionTemperature(code)
	first := junctionAnchors[0]
	if t == first.temp {
		return first.code
	}
	for i := 1; i < len(junctionAnchors); i++ {
		lo := junctionAnchors[i-1]
		hi := junctionAnchors[i]
		if t > lo.temp && t <= hi.temp {
			return lo.code + ((hi.code-lo.code)*(t-lo.temp))/(hi.temp-lo.temp)
		}
	}
	return 0
}
