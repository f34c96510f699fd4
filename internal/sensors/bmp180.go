// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// DefaultBMP180Addr is the fixed I²C address of the BMP180.
const DefaultBMP180Addr uint16 = 0x77

var (
	hostOnce    sync.Once
	hostInitErr error
)

// InitHost initializes the periph host drivers once per process.
func InitHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

// BMP180 reads a Bosch BMP180 over I²C.
type BMP180 struct {
	bus i2c.BusCloser
	dev *bmxx80.Dev
}

// NewBMP180 opens the I²C bus by name ("" = first available bus) and the
// barometer at addr (0 = default 0x77).
func NewBMP180(busName string, addr uint16) (*BMP180, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	if addr == 0 {
		addr = DefaultBMP180Addr
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("BMP180 I2C open %q: %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("BMP180 init at 0x%02X: %w", addr, err)
	}

	log.Printf("sensors: %s initialized on I2C bus %q at 0x%02X", dev, busName, addr)
	return &BMP180{bus: bus, dev: dev}, nil
}

func (b *BMP180) sense() (physic.Env, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return physic.Env{}, fmt.Errorf("BMP180 sense: %w", err)
	}
	return e, nil
}

// ReadPressure returns the pressure in whole pascals.
func (b *BMP180) ReadPressure() (int64, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}
	return pascals(e.Pressure), nil
}

// ReadAltitude returns the altitude compensated against referencePa.
func (b *BMP180) ReadAltitude(referencePa int64) (float64, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}
	return Altitude(pascals(e.Pressure), referencePa), nil
}

// ReadTemperature returns the temperature in °C.
func (b *BMP180) ReadTemperature() (float64, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}
	return e.Temperature.Celsius(), nil
}

// Close halts the device and releases the bus.
func (b *BMP180) Close() error {
	if err := b.dev.Halt(); err != nil {
		b.bus.Close()
		return fmt.Errorf("BMP180 halt: %w", err)
	}
	return b.bus.Close()
}

// pascals rounds a periph pressure to the nearest pascal.
func pascals(p physic.Pressure) int64 {
	return int64((p + physic.Pascal/2) / physic.Pascal)
}
