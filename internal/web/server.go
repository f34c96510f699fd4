// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the station page and the latest readings.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relabs-tech/weather_station/internal/filter"
	"github.com/relabs-tech/weather_station/internal/gps"
	"github.com/relabs-tech/weather_station/internal/history"
	"github.com/relabs-tech/weather_station/internal/lifecycle"
	"github.com/relabs-tech/weather_station/internal/store"
)

// HistoryReader lists recorded readings, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Row, error)
}

// FixReader returns the latest GPS fix.
type FixReader interface {
	Latest() (gps.Fix, bool)
}

// Options are the optional parts of the server. Nil readers disable their
// endpoints.
type Options struct {
	History        HistoryReader
	HistoryLimit   int
	GPS            FixReader
	StreamInterval time.Duration // /ws push period, default 1s
}

// Server builds a fresh http.Server each time it is started, so it can be
// stopped and started again as the access point comes and goes.
type Server struct {
	addr   string
	store  *store.Store
	filter *filter.Deadband
	opts   Options
}

// NewServer returns a server that will listen on addr.
func NewServer(addr string, st *store.Store, f *filter.Deadband, opts Options) *Server {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = time.Second
	}
	return &Server{addr: addr, store: st, filter: f, opts: opts}
}

// Router returns the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleMenu)
	log.Println("web: URI / registered")
	r.Get("/bootstrap.min.css", s.handleBootstrap)
	log.Println("web: URI /bootstrap.min.css registered")
	r.Get("/getBMPData", s.handleBMPData)
	log.Println("web: URI /getBMPData registered")
	r.Get("/ws", s.handleStream)

	if s.opts.History != nil {
		r.Get("/getHistory", s.handleHistory)
	}
	if s.opts.GPS != nil {
		r.Get("/getGPSData", s.handleGPS)
	}
	return r
}

// Start binds the listener and serves in the background. A bind failure is
// returned as the start error.
func (s *Server) Start() (lifecycle.Handle, error) {
	log.Printf("web: starting server on %s", s.addr)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:     s.Router(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("web: server error: %v", err)
		}
	}()

	return &Running{srv: srv, addr: ln.Addr(), cancel: cancel}, nil
}

// Running is a started server.
type Running struct {
	srv    *http.Server
	addr   net.Addr
	cancel context.CancelFunc
}

// Addr is the bound listen address.
func (r *Running) Addr() string {
	return r.addr.String()
}

// Stop closes the listener, ends websocket streams and waits for
// in-flight requests.
func (r *Running) Stop(ctx context.Context) error {
	r.cancel()
	log.Println("web: httpd_stop")
	return r.srv.Shutdown(ctx)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(menuHTML)
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(bootstrapCSS)
}

// bmpPayload is the /getBMPData body; field order is part of the format.
type bmpPayload struct {
	Temperature string `json:"temperature"`
	Pressure    int64  `json:"pressure"`
	Altitude    string `json:"altitude"`
	FilterValue int64  `json:"filterValue"`
}

// payload snapshots the store and advances the pressure filter.
func (s *Server) payload() bmpPayload {
	reading := s.store.Read()
	return bmpPayload{
		Temperature: strconv.FormatFloat(reading.Temperature, 'f', 2, 64),
		Pressure:    reading.Pressure,
		Altitude:    strconv.FormatFloat(reading.Altitude, 'f', 2, 64),
		FilterValue: s.filter.Filter(reading.Pressure),
	}
}

func (s *Server) handleBMPData(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(s.payload())
	if err != nil {
		log.Printf("web: json marshal error: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	rows, err := s.opts.History.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("web: history query error: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *Server) handleGPS(w http.ResponseWriter, r *http.Request) {
	fix, ok := s.opts.GPS.Latest()
	if !ok {
		http.Error(w, "no fix yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fix); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}
