// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wifi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// APConfig describes the access point the station hosts.
type APConfig struct {
	Interface  string // e.g. "wlan0"
	SSID       string
	MaxClients int
	Channel    int
}

// DefaultAPConfig is the open network clients join to read the station.
var DefaultAPConfig = APConfig{
	Interface:  "wlan0",
	SSID:       "Estacao-Meteorologica",
	MaxClients: 3,
	Channel:    6,
}

// RenderHostapd renders a hostapd.conf for an open (no auth) AP.
func RenderHostapd(cfg APConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", cfg.Interface)
	b.WriteString("driver=nl80211\n")
	fmt.Fprintf(&b, "ssid=%s\n", cfg.SSID)
	b.WriteString("hw_mode=g\n")
	fmt.Fprintf(&b, "channel=%d\n", cfg.Channel)
	fmt.Fprintf(&b, "max_num_sta=%d\n", cfg.MaxClients)
	b.WriteString("auth_algs=1\n")
	b.WriteString("wpa=0\n")
	b.WriteString("ignore_broadcast_ssid=0\n")
	return b.String()
}

// ParseHostapdLine translates one line of hostapd output into an event.
// ok is false for lines that are not AP lifecycle notifications.
//
// hostapd prefixes control events with the interface name, e.g.
// "wlan0: AP-STA-CONNECTED 12:34:56:78:9a:bc"; hostapd_cli uses a "<3>"
// level prefix instead.
func ParseHostapdLine(line string) (Event, bool) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.HasPrefix(f, "<") {
			if j := strings.Index(f, ">"); j >= 0 {
				f = f[j+1:]
			}
		}
		detail := ""
		if i+1 < len(fields) {
			detail = fields[i+1]
		}
		switch f {
		case "AP-ENABLED":
			return Event{Type: APStarted}, true
		case "AP-DISABLED":
			return Event{Type: APStopped}, true
		case "AP-STA-CONNECTED":
			return Event{Type: APClientConnected, Detail: detail}, true
		case "AP-STA-DISCONNECTED":
			return Event{Type: APClientDisconnected, Detail: detail}, true
		}
	}
	return Event{}, false
}

// Hostapd runs hostapd as a child process and turns its output into events.
type Hostapd struct {
	Binary   string // default "hostapd"
	ConfPath string // default /tmp/weather_station_hostapd.conf
	Config   APConfig

	events chan Event
	once   sync.Once
}

// Events returns the channel fed by Start. It is closed when hostapd exits.
func (h *Hostapd) Events() <-chan Event {
	h.once.Do(func() { h.events = make(chan Event, 16) })
	return h.events
}

// Start writes the configuration and launches hostapd. Errors here are
// startup failures; afterwards the process is supervised in the background
// until ctx is cancelled.
func (h *Hostapd) Start(ctx context.Context) error {
	h.Events()
	events := h.events

	binary := h.Binary
	if binary == "" {
		binary = "hostapd"
	}
	confPath := h.ConfPath
	if confPath == "" {
		confPath = filepath.Join(os.TempDir(), "weather_station_hostapd.conf")
	}

	if err := os.WriteFile(confPath, []byte(RenderHostapd(h.Config)), 0o644); err != nil {
		return fmt.Errorf("write hostapd config: %w", err)
	}
	log.Printf("wifi: wrote hostapd config to %s (ssid=%q, max clients=%d)", confPath, h.Config.SSID, h.Config.MaxClients)

	cmd := exec.CommandContext(ctx, binary, confPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("hostapd stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start hostapd: %w", err)
	}
	log.Printf("wifi: hostapd started (pid %d) on %s", cmd.Process.Pid, h.Config.Interface)

	go func() {
		defer close(events)
		forwardHostapd(ctx, stdout, events)
		if err := cmd.Wait(); err != nil {
			log.Printf("wifi: hostapd exited: %v", err)
		} else {
			log.Println("wifi: hostapd exited")
		}
		// the AP is gone with the process
		select {
		case events <- Event{Type: APStopped, Detail: "hostapd exited"}:
		case <-ctx.Done():
		}
	}()

	return nil
}

func forwardHostapd(ctx context.Context, r io.Reader, events chan<- Event) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ev, ok := ParseHostapdLine(scanner.Text())
		if !ok {
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("wifi: hostapd output read error: %v", err)
	}
}
