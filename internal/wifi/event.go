// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wifi brings up the access point and reports its lifecycle
// events.
package wifi

import "strings"

// EventType is an access-point lifecycle event.
type EventType int

const (
	Unknown EventType = iota
	APStarted
	APStopped
	APClientConnected
	APClientDisconnected
	APClientAssignedIP
)

func (t EventType) String() string {
	switch t {
	case APStarted:
		return "AP_START"
	case APStopped:
		return "AP_STOP"
	case APClientConnected:
		return "AP_STACONNECTED"
	case APClientDisconnected:
		return "AP_STADISCONNECTED"
	case APClientAssignedIP:
		return "AP_STAIPASSIGNED"
	default:
		return "UNKNOWN"
	}
}

// Event is one notification from the access point. Detail carries the
// station MAC or IP when the source provides one; it is only logged.
type Event struct {
	Type   EventType
	Detail string
}

// ParseEventName maps the AP_* event names used on the MQTT event topic
// to an EventType. Anything else is Unknown.
func ParseEventName(name string) EventType {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "AP_START":
		return APStarted
	case "AP_STOP":
		return APStopped
	case "AP_STACONNECTED":
		return APClientConnected
	case "AP_STADISCONNECTED":
		return APClientDisconnected
	case "AP_STAIPASSIGNED":
		return APClientAssignedIP
	default:
		return Unknown
	}
}

// Source delivers AP events until it is closed or fails.
type Source interface {
	Events() <-chan Event
}
