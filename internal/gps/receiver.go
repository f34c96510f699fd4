// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// Receiver keeps the latest fix assembled from RMC and GGA sentences.
type Receiver struct {
	mu   sync.RWMutex
	fix  Fix
	have bool
}

// NewReceiver returns a receiver with no fix yet.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Latest returns the current fix and whether any sentence was applied.
func (r *Receiver) Latest() (Fix, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fix, r.have
}

// ApplySentence parses one NMEA line and merges it into the fix.
// Lines that are not RMC or GGA are ignored.
func (r *Receiver) ApplySentence(line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return fmt.Errorf("nmea parse: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		r.fix.Time = m.Time.String()
		r.fix.Date = m.Date.String()
		r.fix.Latitude = m.Latitude
		r.fix.Longitude = m.Longitude
		r.fix.Validity = string(m.Validity)
		r.have = true
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		r.fix.Time = m.Time.String()
		r.fix.Latitude = m.Latitude
		r.fix.Longitude = m.Longitude
		r.fix.Altitude = m.Altitude
		r.fix.Satellites = m.NumSatellites
		r.fix.Quality = m.FixQuality
		r.have = true
	}
	return nil
}

// ReadFrom applies sentences from rd until it fails or ctx is cancelled.
func (r *Receiver) ReadFrom(ctx context.Context, rd io.Reader) error {
	reader := bufio.NewReader(rd)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("gps read: %w", err)
		}
		if err := r.ApplySentence(line); err != nil {
			// noisy receivers emit partial sentences at power-up
			continue
		}
	}
}

// RunSerial opens the GPS serial port and feeds the receiver until ctx is
// cancelled or the port fails.
func (r *Receiver) RunSerial(ctx context.Context, portName string, baud uint) error {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return fmt.Errorf("open GPS port %s: %w", portName, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", portName, baud)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return r.ReadFrom(ctx, port)
}
