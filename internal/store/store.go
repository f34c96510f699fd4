// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store holds the most recent barometer reading shared between the
// acquisition loop and the HTTP handlers.
package store

import (
	"sync"

	"github.com/relabs-tech/weather_station/internal/env"
)

// Store is a single-writer, many-reader snapshot of the latest reading.
// Create one per process with New and pass it to whoever needs it.
type Store struct {
	mu      sync.RWMutex
	reading env.Reading
}

// New returns an empty store (all fields zero until the first cycle).
func New() *Store {
	return &Store{}
}

// Write replaces the stored snapshot.
func (s *Store) Write(r env.Reading) {
	s.mu.Lock()
	s.reading = r
	s.mu.Unlock()
}

// Read returns a copy of the current snapshot.
func (s *Store) Read() env.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reading
}
