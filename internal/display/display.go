// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display shows the latest reading on an SSD1306 OLED.
package display

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/store"
)

// Drawer is the part of ssd1306.Dev the update loop needs.
type Drawer interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// OLED is an opened SSD1306 together with its bus.
type OLED struct {
	*ssd1306.Dev
	bus i2c.BusCloser
}

// Open initializes the 128x64 OLED on the named I²C bus.
func Open(busName string) (*OLED, error) {
	if err := sensors.InitHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %q", busName)
	return &OLED{Dev: dev, bus: bus}, nil
}

// Close turns the panel off and releases the bus.
func (o *OLED) Close() error {
	if err := o.Dev.Halt(); err != nil {
		log.Printf("display: halt error: %v", err)
	}
	return o.bus.Close()
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// Lines returns the text shown for a reading.
func Lines(r env.Reading, serverRunning bool) []string {
	web := "Web: off"
	if serverRunning {
		web = "Web: on"
	}
	return []string{
		fmt.Sprintf("P: %d Pa", r.Pressure),
		fmt.Sprintf("T: %.2f C", r.Temperature),
		fmt.Sprintf("Alt: %.1f m", r.Altitude),
		web,
	}
}

// Render draws the reading screen.
func Render(r env.Reading, serverRunning bool) *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	for i, line := range Lines(r, serverRunning) {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// RenderSplash draws the start-up screen.
func RenderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Estacao")
	drawer.Dot = fixed.P(10, 43)
	drawer.DrawString("Meteorologica")
	return img
}

// Run redraws dev every interval until ctx is cancelled. serverRunning
// reports the HTTP server state.
func Run(ctx context.Context, dev Drawer, st *store.Store, serverRunning func() bool, interval time.Duration) {
	if err := dev.Draw(dev.Bounds(), RenderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			img := Render(st.Read(), serverRunning())
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
