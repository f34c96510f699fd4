package app

import (
	"context"
	"os"

	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// RunConsoleMQTT prints the station readings published on TOPIC_BMP.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	clientID := cfg.MQTTClientID
	if clientID != "" {
		clientID += "-console"
	}
	client, err := telemetry.Connect(cfg.MQTTBroker, clientID)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	return telemetry.RunConsole(ctx, client, cfg.TopicBMP, os.Stdout)
}
