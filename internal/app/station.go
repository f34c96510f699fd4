// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/weather_station/internal/acquisition"
	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/display"
	"github.com/relabs-tech/weather_station/internal/filter"
	"github.com/relabs-tech/weather_station/internal/gps"
	"github.com/relabs-tech/weather_station/internal/history"
	"github.com/relabs-tech/weather_station/internal/lifecycle"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/store"
	"github.com/relabs-tech/weather_station/internal/telemetry"
	"github.com/relabs-tech/weather_station/internal/web"
	"github.com/relabs-tech/weather_station/internal/wifi"
)

// HistoryPruneInterval bounds how often old history rows are deleted.
const HistoryPruneInterval = time.Hour

// Station owns every long-lived object of the weather station.
type Station struct {
	cfg *config.Config

	Store      *store.Store
	Filter     *filter.Deadband
	Controller *lifecycle.Controller

	driver  sensors.Driver
	loop    *acquisition.Loop
	server  *web.Server
	client  mqtt.Client
	history *history.Store
	gps     *gps.Receiver
	closers []func() error
}

// NewStation builds the station from cfg. Only failures that leave the
// station unable to serve are returned; optional parts that fail to come
// up are logged and left out.
func NewStation(cfg *config.Config) (*Station, error) {
	s := &Station{
		cfg:    cfg,
		Store:  store.New(),
		Filter: filter.NewDeadband(cfg.FilterThreshold),
	}

	if cfg.MQTTBroker != "" {
		client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			if cfg.APEventSource == config.EventSourceMQTT {
				return nil, err
			}
			log.Printf("station: telemetry disabled: %v", err)
		} else {
			s.client = client
			s.closers = append(s.closers, func() error {
				client.Disconnect(250)
				return nil
			})
		}
	}

	s.driver = openDriver(cfg)
	if s.driver != nil {
		s.loop = acquisition.New(s.driver, s.Store, acquisition.Options{
			Interval:          cfg.SampleInterval(),
			ReferencePressure: cfg.ReferencePressure,
		})
		if c, ok := s.driver.(interface{ Close() error }); ok {
			s.closers = append(s.closers, c.Close)
		}
	}

	opts := web.Options{HistoryLimit: cfg.HistoryLimit}

	if cfg.HistoryDBPath != "" {
		h, err := history.Open(cfg.HistoryDBPath)
		if err != nil {
			log.Printf("station: history disabled: %v", err)
		} else {
			s.history = h
			s.closers = append(s.closers, h.Close)
			opts.History = h
			if s.loop != nil {
				s.loop.AddObserver(h)
			}
		}
	}

	if s.client != nil && s.loop != nil && cfg.TopicBMP != "" {
		s.loop.AddObserver(telemetry.NewPublisher(s.client, cfg.TopicBMP))
	}

	if cfg.GPSSerialPort != "" {
		s.gps = gps.NewReceiver()
		opts.GPS = s.gps
	}

	s.server = web.NewServer(cfg.WebServerAddr, s.Store, s.Filter, opts)
	s.Controller = lifecycle.NewController(s.server)
	return s, nil
}

func openDriver(cfg *config.Config) sensors.Driver {
	if cfg.SensorMock {
		log.Println("station: using mock sensor driver")
		return sensors.NewMockDriver()
	}
	bmp, err := sensors.NewBMP180(cfg.I2CBus, cfg.BMPI2CAddr)
	if err != nil {
		log.Printf("station: BMP init failed, acquisition disabled: %v", err)
		return nil
	}
	return bmp
}

// eventSource starts the configured AP event source.
func (s *Station) eventSource(ctx context.Context) (wifi.Source, error) {
	switch s.cfg.APEventSource {
	case config.EventSourceStatic:
		return wifi.NewStaticSource(), nil
	case config.EventSourceMQTT:
		if s.client == nil {
			return nil, fmt.Errorf("AP events over MQTT need a broker connection")
		}
		return wifi.NewMQTTSource(s.client, s.cfg.TopicAPEvents)
	default:
		h := &wifi.Hostapd{
			Binary:   s.cfg.HostapdBinary,
			ConfPath: s.cfg.HostapdConfPath,
			Config:   s.cfg.APConfig(),
		}
		if err := h.Start(ctx); err != nil {
			return nil, err
		}
		return h, nil
	}
}

// Run starts the access point and every task, then blocks until ctx is
// cancelled. An error is returned only when the access point cannot be
// brought up.
func (s *Station) Run(ctx context.Context) error {
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source, err := s.eventSource(ctx)
	if err != nil {
		return fmt.Errorf("access point: %w", err)
	}

	var wg sync.WaitGroup
	spawn := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	if s.loop != nil {
		spawn(func() { s.loop.Run(ctx) })
	}
	spawn(func() { s.Controller.Run(ctx, source.Events()) })

	if s.history != nil && s.cfg.HistoryMaxAge > 0 {
		every := HistoryPruneInterval
		if s.cfg.HistoryMaxAge < every {
			every = s.cfg.HistoryMaxAge
		}
		spawn(func() { s.history.RunPruner(ctx, s.cfg.HistoryMaxAge, every) })
	}

	if s.gps != nil {
		spawn(func() {
			if err := s.gps.RunSerial(ctx, s.cfg.GPSSerialPort, uint(s.cfg.GPSBaudRate)); err != nil {
				log.Printf("station: GPS stopped: %v", err)
			}
		})
	}

	if s.cfg.DisplayEnabled {
		oled, err := display.Open(s.cfg.DisplayI2CBus)
		if err != nil {
			log.Printf("station: display disabled: %v", err)
		} else {
			s.closers = append(s.closers, oled.Close)
			spawn(func() { display.Run(ctx, oled, s.Store, s.Controller.Running, s.cfg.DisplayInterval()) })
		}
	}

	log.Printf("station: running (web %s, AP events from %s)", s.cfg.WebServerAddr, s.cfg.APEventSource)
	<-ctx.Done()
	log.Println("station: shutting down")
	wg.Wait()
	return nil
}

func (s *Station) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("station: close error: %v", err)
		}
	}
	s.closers = nil
}

// RunStation builds a station from cfg and runs it until ctx is cancelled.
func RunStation(ctx context.Context, cfg *config.Config) error {
	s, err := NewStation(cfg)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
