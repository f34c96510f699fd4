// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"
)

type mockDriver struct {
	start time.Time
}

// NewMockDriver returns a driver that generates smoothly changing values
// around a mild sea-level day, for running without the barometer attached.
func NewMockDriver() Driver {
	return &mockDriver{start: time.Now()}
}

func (m *mockDriver) pressure() int64 {
	elapsed := time.Since(m.start).Seconds()
	return 101300 + int64(math.Round(40*math.Sin(elapsed/30)))
}

func (m *mockDriver) ReadPressure() (int64, error) {
	return m.pressure(), nil
}

func (m *mockDriver) ReadAltitude(referencePa int64) (float64, error) {
	return Altitude(m.pressure(), referencePa), nil
}

func (m *mockDriver) ReadTemperature() (float64, error) {
	elapsed := time.Since(m.start).Seconds()
	return 22.5 + 1.5*math.Cos(elapsed/60), nil
}
