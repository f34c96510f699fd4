// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry mirrors acquisition cycles onto MQTT.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/weather_station/internal/env"
)

// PublishTimeout bounds how long a cycle waits for the broker.
const PublishTimeout = 2 * time.Second

// Connect connects to broker. An empty clientID gets a random one so
// several stations can share a broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	if clientID == "" {
		clientID = "weather-station-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("telemetry: connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// publisher is the part of mqtt.Client the Publisher uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher publishes every reading as retained JSON on one topic.
type Publisher struct {
	client publisher
	topic  string
}

// NewPublisher returns a Publisher on topic.
func NewPublisher(client publisher, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Observe publishes r. It satisfies acquisition.Observer.
func (p *Publisher) Observe(_ context.Context, r env.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(PublishTimeout) {
		return fmt.Errorf("MQTT publish %s: timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish %s: %w", p.topic, err)
	}
	return nil
}

// FormatReading is the console line for a reading.
func FormatReading(r env.Reading) string {
	return fmt.Sprintf("[BMP]  P=%6d Pa  T=%6.2f C  ALT=%7.2f m", r.Pressure, r.Temperature, r.Altitude)
}

// RunConsole prints every reading published on topic until ctx is
// cancelled.
func RunConsole(ctx context.Context, client mqtt.Client, topic string, out io.Writer) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r env.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: reading unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, FormatReading(r))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", topic)

	<-ctx.Done()
	log.Println("console: shutting down")
	client.Unsubscribe(topic).WaitTimeout(time.Second)
	return nil
}
