// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter implements the pressure jitter filter applied when
// readings are served.
package filter

import "sync"

// DefaultThreshold is the pressure deadband in Pa.
const DefaultThreshold int64 = 7

// Deadband reports a new sample only when it moves more than Threshold
// away from the last accepted one. It keeps no trend, only the last value.
type Deadband struct {
	mu        sync.Mutex
	threshold int64
	last      int64
}

// New returns a deadband filter with DefaultThreshold and last = 0.
func New() *Deadband {
	return NewDeadband(DefaultThreshold)
}

// NewDeadband returns a deadband filter with the given threshold.
// Negative thresholds are treated as zero.
func NewDeadband(threshold int64) *Deadband {
	if threshold < 0 {
		threshold = 0
	}
	return &Deadband{threshold: threshold}
}

// Filter returns sample if |sample-last| > threshold (and remembers it),
// otherwise the last accepted value.
func (d *Deadband) Filter(sample int64) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if distance(sample, d.last) > uint64(d.threshold) {
		d.last = sample
	}
	return d.last
}

// distance is |a-b| computed in uint64 so it cannot overflow.
func distance(a, b int64) uint64 {
	if a >= b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}

// Last returns the last accepted value without filtering anything.
func (d *Deadband) Last() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
