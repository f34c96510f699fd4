// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package lifecycle starts and stops the HTTP server as the access point
// comes and goes.
package lifecycle

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/wifi"
)

// State of the HTTP server as seen by the controller.
type State int

const (
	ServerStopped State = iota
	ServerRunning
)

func (s State) String() string {
	if s == ServerRunning {
		return "running"
	}
	return "stopped"
}

// Handle is a running server.
type Handle interface {
	Stop(ctx context.Context) error
}

// Starter starts a server and registers its routes.
type Starter interface {
	Start() (Handle, error)
}

// StarterFunc adapts a function to Starter.
type StarterFunc func() (Handle, error)

func (f StarterFunc) Start() (Handle, error) { return f() }

// StopTimeout bounds a graceful server shutdown.
const StopTimeout = 5 * time.Second

// Controller is the only owner of the server handle. Every event is
// handled under one lock, so repeated APStarted events cannot start a
// second server.
type Controller struct {
	starter Starter

	mu     sync.Mutex
	handle Handle
}

// NewController returns a controller in ServerStopped.
func NewController(starter Starter) *Controller {
	return &Controller{starter: starter}
}

// State reports whether a server handle is held.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		return ServerRunning
	}
	return ServerStopped
}

// Running is shorthand for State() == ServerRunning.
func (c *Controller) Running() bool {
	return c.State() == ServerRunning
}

// Handle applies one AP event.
func (c *Controller) Handle(ctx context.Context, ev wifi.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case wifi.APStarted:
		log.Println("lifecycle: EVENT AP START")
		if c.handle != nil {
			log.Println("lifecycle: server already running, ignoring")
			return
		}
		h, err := c.starter.Start()
		if err != nil {
			log.Printf("lifecycle: server start failed: %v", err)
			return
		}
		c.handle = h
		log.Println("lifecycle: server running")

	case wifi.APStopped:
		log.Println("lifecycle: EVENT AP STOP")
		c.stopLocked(ctx)

	case wifi.APClientConnected, wifi.APClientDisconnected, wifi.APClientAssignedIP:
		log.Printf("lifecycle: %s %s", ev.Type, ev.Detail)

	default:
		log.Printf("lifecycle: unhandled event %s %s", ev.Type, ev.Detail)
	}
}

// stopLocked stops the server if one is held. A failed stop keeps the
// handle so a later APStopped tries again.
func (c *Controller) stopLocked(ctx context.Context) {
	if c.handle == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(ctx, StopTimeout)
	defer cancel()

	if err := c.handle.Stop(stopCtx); err != nil {
		log.Printf("lifecycle: HTTP STOP FAIL: %v", err)
		return
	}
	c.handle = nil
	log.Println("lifecycle: HTTP STOP SUCCESS")
}

// Run handles events from the channel until it closes or ctx is
// cancelled, then stops any running server.
func (c *Controller) Run(ctx context.Context, events <-chan wifi.Event) {
	defer func() {
		c.mu.Lock()
		c.stopLocked(context.Background())
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				log.Println("lifecycle: event source closed")
				return
			}
			c.Handle(ctx, ev)
		}
	}
}
