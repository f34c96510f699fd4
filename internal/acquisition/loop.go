// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition polls the barometer and keeps the reading store
// up to date.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/store"
)

// DefaultInterval is the delay between the end of one cycle and the start
// of the next.
const DefaultInterval = 1000 * time.Millisecond

// ObserverQueue is how many snapshots may wait for slow observers before
// new ones are dropped.
const ObserverQueue = 16

// Observer is handed every snapshot after it has been stored
// (MQTT publisher, history recorder, ...). Observers run on their own
// goroutine and never delay a cycle.
type Observer interface {
	Observe(ctx context.Context, r env.Reading) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r env.Reading) error

func (f ObserverFunc) Observe(ctx context.Context, r env.Reading) error {
	return f(ctx, r)
}

// Options tunes a Loop. Zero values select the defaults.
type Options struct {
	Interval          time.Duration
	ReferencePressure int64 // Pa, default sensors.ReferencePressure
}

// Loop is the periodic acquisition task.
type Loop struct {
	driver    sensors.Driver
	store     *store.Store
	interval  time.Duration
	reference int64
	observers []Observer
	queue     chan env.Reading
}

// New creates a loop writing readings from driver into st.
func New(driver sensors.Driver, st *store.Store, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ReferencePressure <= 0 {
		opts.ReferencePressure = sensors.ReferencePressure
	}
	return &Loop{
		driver:    driver,
		store:     st,
		interval:  opts.Interval,
		reference: opts.ReferencePressure,
		queue:     make(chan env.Reading, ObserverQueue),
	}
}

// AddObserver registers o. Call before Run.
func (l *Loop) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// Run samples until ctx is cancelled. Read failures never stop the loop.
func (l *Loop) Run(ctx context.Context) {
	log.Printf("acquisition: starting (interval=%s, reference=%d Pa)", l.interval, l.reference)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.dispatch(ctx)
	}()
	defer wg.Wait()

	for {
		l.RunCycle(ctx)

		select {
		case <-ctx.Done():
			log.Println("acquisition: stopped")
			return
		case <-time.After(l.interval):
		}
	}
}

// RunCycle performs one pressure/altitude/temperature pass, stores the
// merged snapshot and queues it for observers. Fields whose read failed keep
// their previous value. The returned error joins the per-field failures.
func (l *Loop) RunCycle(ctx context.Context) (env.Reading, error) {
	r := l.store.Read()
	var errs []error

	if p, err := l.driver.ReadPressure(); err != nil {
		log.Printf("acquisition: pressure read failed: %v", err)
		errs = append(errs, fmt.Errorf("pressure: %w", err))
	} else {
		r.Pressure = p
	}

	if a, err := l.driver.ReadAltitude(l.reference); err != nil {
		log.Printf("acquisition: altitude read failed: %v", err)
		errs = append(errs, fmt.Errorf("altitude: %w", err))
	} else {
		r.Altitude = a
	}

	if t, err := l.driver.ReadTemperature(); err != nil {
		log.Printf("acquisition: temperature read failed: %v", err)
		errs = append(errs, fmt.Errorf("temperature: %w", err))
	} else {
		r.Temperature = t
	}

	l.store.Write(r)

	if len(l.observers) > 0 {
		select {
		case l.queue <- r:
		default:
			log.Println("acquisition: observer queue full, dropping snapshot")
		}
	}

	return r, errors.Join(errs...)
}

// dispatch hands queued snapshots to observers until ctx is cancelled.
func (l *Loop) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-l.queue:
			l.notify(ctx, r)
		}
	}
}

func (l *Loop) notify(ctx context.Context, r env.Reading) {
	for _, o := range l.observers {
		if err := o.Observe(ctx, r); err != nil {
			log.Printf("acquisition: observer error: %v", err)
		}
	}
}
