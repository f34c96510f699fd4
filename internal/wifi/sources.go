// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wifi

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type staticSource struct {
	events chan Event
}

// NewStaticSource reports a single APStarted, for hosts where the access
// point is managed outside this process and is always up.
func NewStaticSource() Source {
	ch := make(chan Event, 1)
	ch <- Event{Type: APStarted, Detail: "static"}
	return &staticSource{events: ch}
}

func (s *staticSource) Events() <-chan Event {
	return s.events
}

// mqttEvent is the JSON form accepted on the event topic. A bare event
// name ("AP_START") is accepted as well.
type mqttEvent struct {
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

// ParseMQTTPayload decodes an event published by an external network
// manager.
func ParseMQTTPayload(payload []byte) Event {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var m mqttEvent
		if err := json.Unmarshal([]byte(text), &m); err == nil {
			return Event{Type: ParseEventName(m.Event), Detail: m.Detail}
		}
	}
	return Event{Type: ParseEventName(text)}
}

// MQTTSource listens for AP events on an MQTT topic.
type MQTTSource struct {
	events chan Event
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string) (*MQTTSource, error) {
	s := &MQTTSource{events: make(chan Event, 16)}

	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		ev := ParseMQTTPayload(msg.Payload())
		select {
		case s.events <- ev:
		default:
			log.Printf("wifi: event queue full, dropping %s", ev.Type)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("wifi: subscribed to AP events on %s", topic)
	return s, nil
}

func (s *MQTTSource) Events() <-chan Event {
	return s.events
}
