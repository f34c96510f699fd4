package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/wifi"
)

// AP event sources.
const (
	EventSourceHostapd = "hostapd"
	EventSourceMQTT    = "mqtt"
	EventSourceStatic  = "static"
)

// Config holds all application configuration values.
type Config struct {
	// Sensor
	I2CBus            string
	BMPI2CAddr        uint16
	SensorMock        bool
	SampleIntervalMS  int
	ReferencePressure int64 // Pa
	FilterThreshold   int64 // Pa

	// Web Server
	WebServerAddr string

	// Access Point
	APInterface     string
	APSSID          string
	APMaxClients    int
	APChannel       int
	APEventSource   string // "hostapd", "mqtt" or "static"
	HostapdBinary   string
	HostapdConfPath string

	// MQTT (empty broker disables telemetry)
	MQTTBroker    string
	MQTTClientID  string
	TopicBMP      string
	TopicAPEvents string

	// History (empty path disables it)
	HistoryDBPath string
	HistoryLimit  int
	HistoryMaxAge time.Duration // 0 keeps rows forever

	// Display
	DisplayEnabled        bool
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// GPS (empty port disables it)
	GPSSerialPort string
	GPSBaudRate   int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		I2CBus:                "",
		BMPI2CAddr:            0x77,
		SampleIntervalMS:      1000,
		ReferencePressure:     101325,
		FilterThreshold:       7,
		WebServerAddr:         ":80",
		APInterface:           wifi.DefaultAPConfig.Interface,
		APSSID:                wifi.DefaultAPConfig.SSID,
		APMaxClients:          wifi.DefaultAPConfig.MaxClients,
		APChannel:             wifi.DefaultAPConfig.Channel,
		APEventSource:         EventSourceHostapd,
		HostapdBinary:         "hostapd",
		HostapdConfPath:       "/tmp/weather_station_hostapd.conf",
		TopicBMP:              "weather_station/bmp",
		TopicAPEvents:         "weather_station/ap_events",
		HistoryLimit:          100,
		HistoryMaxAge:         7 * 24 * time.Hour,
		DisplayUpdateInterval: 1000,
		GPSBaudRate:           9600,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < min || val > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, val)
	}
	return val, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Sensor
	case "I2C_BUS":
		c.I2CBus = value
	case "BMP_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid BMP_I2C_ADDR %q: %w", value, perr)
		}
		c.BMPI2CAddr = uint16(addr)
	case "SENSOR_MOCK":
		c.SensorMock, err = parseBool(key, value)
	case "SAMPLE_INTERVAL_MS":
		c.SampleIntervalMS, err = parseInt(key, value, 1, 3600000)
	case "REFERENCE_PRESSURE":
		var p int
		p, err = parseInt(key, value, 1, 200000)
		c.ReferencePressure = int64(p)
	case "FILTER_THRESHOLD":
		var t int
		t, err = parseInt(key, value, 0, 100000)
		c.FilterThreshold = int64(t)

	// Web Server
	case "WEB_SERVER_ADDR":
		c.WebServerAddr = value

	// Access Point
	case "AP_INTERFACE":
		c.APInterface = value
	case "AP_SSID":
		c.APSSID = value
	case "AP_MAX_CLIENTS":
		c.APMaxClients, err = parseInt(key, value, 1, 2007)
	case "AP_CHANNEL":
		c.APChannel, err = parseInt(key, value, 1, 14)
	case "AP_EVENT_SOURCE":
		switch value {
		case EventSourceHostapd, EventSourceMQTT, EventSourceStatic:
			c.APEventSource = value
		default:
			return fmt.Errorf("AP_EVENT_SOURCE must be hostapd, mqtt or static, got %q", value)
		}
	case "HOSTAPD_BINARY":
		c.HostapdBinary = value
	case "HOSTAPD_CONF_PATH":
		c.HostapdConfPath = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_BMP":
		c.TopicBMP = value
	case "TOPIC_AP_EVENTS":
		c.TopicAPEvents = value

	// History
	case "HISTORY_DB_PATH":
		c.HistoryDBPath = value
	case "HISTORY_LIMIT":
		c.HistoryLimit, err = parseInt(key, value, 1, 100000)
	case "HISTORY_MAX_AGE":
		d, perr := time.ParseDuration(value)
		if perr != nil {
			return fmt.Errorf("invalid HISTORY_MAX_AGE %q: %w", value, perr)
		}
		if d < 0 {
			return fmt.Errorf("HISTORY_MAX_AGE must not be negative, got %s", d)
		}
		c.HistoryMaxAge = d

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 50, 3600000)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value, 1, 4000000)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field requirements.
func (c *Config) validate() error {
	if c.WebServerAddr == "" {
		return fmt.Errorf("WEB_SERVER_ADDR is required")
	}
	if c.APEventSource == EventSourceMQTT && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when AP_EVENT_SOURCE=mqtt")
	}
	if c.APEventSource == EventSourceMQTT && c.TopicAPEvents == "" {
		return fmt.Errorf("TOPIC_AP_EVENTS is required when AP_EVENT_SOURCE=mqtt")
	}
	if c.APEventSource == EventSourceHostapd && c.HostapdConfPath == "" {
		return fmt.Errorf("HOSTAPD_CONF_PATH is required when AP_EVENT_SOURCE=hostapd")
	}
	if c.APSSID == "" {
		return fmt.Errorf("AP_SSID is required")
	}
	return nil
}

// SampleInterval returns SAMPLE_INTERVAL_MS as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMS) * time.Millisecond
}

// DisplayInterval returns DISPLAY_UPDATE_INTERVAL as a duration.
func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// APConfig returns the access point settings.
func (c *Config) APConfig() wifi.APConfig {
	return wifi.APConfig{
		Interface:  c.APInterface,
		SSID:       c.APSSID,
		MaxClients: c.APMaxClients,
		Channel:    c.APChannel,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
