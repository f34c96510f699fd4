// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "math"

// ReferencePressure is the sea-level pressure (Pa) used to compensate the
// altitude estimate. It is a fixed standard-atmosphere value; nothing
// fetches the current sea-level pressure from a weather service.
const ReferencePressure int64 = 101325

// Driver is a barometer that reports each quantity independently so that
// one failed read does not cost the others.
type Driver interface {
	ReadPressure() (int64, error)                    // Pa
	ReadAltitude(referencePa int64) (float64, error) // m
	ReadTemperature() (float64, error)               // °C
}

// Altitude converts a pressure reading to metres above the level where the
// pressure equals referencePa (international barometric formula, as in the
// BMP180 datasheet).
func Altitude(pressurePa, referencePa int64) float64 {
	if pressurePa <= 0 || referencePa <= 0 {
		return 0
	}
	return 44330.0 * (1.0 - math.Pow(float64(pressurePa)/float64(referencePa), 1.0/5.255))
}
