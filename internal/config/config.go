// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/gesture_pilot/internal/actuator"
	"github.com/relabs-tech/gesture_pilot/internal/flight"
	"github.com/relabs-tech/gesture_pilot/internal/gesture"
	"github.com/relabs-tech/gesture_pilot/internal/sensors"
	"github.com/relabs-tech/gesture_pilot/internal/telemetry"
)

// Config holds all application configuration values.
type Config struct {
	Settings   Settings   `yaml:"settings"`
	Serial     Serial     `yaml:"serial"`
	Window     Window     `yaml:"window"`
	Decoder    Decoder    `yaml:"decoder"`
	Classifier Classifier `yaml:"classifier"`
	Gestures   Gestures   `yaml:"gestures"`
	Flight     Flight     `yaml:"flight"`
	Actuator   Actuator   `yaml:"actuator"`
	Events     Events     `yaml:"events"`
}

type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Serial is the telemetry link to the microcontroller.
type Serial struct {
	Port         string   `yaml:"port"`
	BaudRate     int      `yaml:"baudRate"`
	PollInterval Duration `yaml:"pollInterval"`
}

type Window struct {
	Capacity int `yaml:"capacity"`
}

// Decoder configures how firmware log lines are recognized.
type Decoder struct {
	TimestampMarker    string `yaml:"timestampMarker"`
	PayloadMarker      string `yaml:"payloadMarker"`
	PartialFramePolicy string `yaml:"partialFramePolicy"`
}

type Classifier struct {
	ModelPath string `yaml:"modelPath"`
}

type Gestures struct {
	Vocabulary []string `yaml:"vocabulary"`
}

// Flight maps gesture labels to drone commands. Moves values are wire tokens
// such as "up 40" or "cw 90".
type Flight struct {
	Liftoff        string            `yaml:"liftoff"`
	Land           string            `yaml:"land"`
	Neutral        string            `yaml:"neutral"`
	NeutralAction  string            `yaml:"neutralAction"`
	Moves          map[string]string `yaml:"moves"`
	LandOnShutdown bool              `yaml:"landOnShutdown"`
}

// Actuator is the UDP link to the drone.
type Actuator struct {
	DroneAddr  string   `yaml:"droneAddr"`
	LocalAddr  string   `yaml:"localAddr"`
	AckTimeout Duration `yaml:"ackTimeout"`
	Handshake  bool     `yaml:"handshake"`
}

// Events configures the optional MQTT and websocket event sinks. An empty
// MQTTBroker or WebAddr disables that sink.
type Events struct {
	MQTTBroker     string   `yaml:"mqttBroker"`
	MQTTTopic      string   `yaml:"mqttTopic"`
	ClientID       string   `yaml:"clientID"`
	PublishTimeout Duration `yaml:"publishTimeout"`
	WebAddr        string   `yaml:"webAddr"`
}

// Duration is a time.Duration written as "250ms", "3s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config.Duration: failed to parse %q: %w", value.Value, err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Serial: Serial{
			Port:         sensors.DefaultSerialPort,
			BaudRate:     sensors.DefaultBaudRate,
			PollInterval: Duration(sensors.DefaultPollInterval),
		},
		Window: Window{Capacity: 240},
		Decoder: Decoder{
			TimestampMarker:    telemetry.DefaultTimestampMarker,
			PayloadMarker:      telemetry.DefaultPayloadMarker,
			PartialFramePolicy: string(telemetry.DiscardFrame),
		},
		Classifier: Classifier{ModelPath: "gesture_model.json"},
		Gestures:   Gestures{Vocabulary: append([]string(nil), gesture.DefaultLabels...)},
		Flight:     flightFromTable(flight.DefaultTable()),
		Actuator: Actuator{
			DroneAddr:  actuator.DefaultDroneAddr,
			LocalAddr:  actuator.DefaultLocalAddr,
			AckTimeout: Duration(actuator.DefaultAckTimeout),
			Handshake:  true,
		},
		Events: Events{
			MQTTTopic:      "gesturepilot/events",
			ClientID:       "gesturepilot",
			PublishTimeout: Duration(250 * time.Millisecond),
		},
	}
}

func flightFromTable(t flight.Table) Flight {
	f := Flight{
		Liftoff:        string(t.Liftoff),
		Land:           string(t.Land),
		Neutral:        string(t.Neutral),
		NeutralAction:  string(t.NeutralAction),
		LandOnShutdown: t.LandOnShutdown,
	}
	for label, cmd := range t.Moves {
		if f.Moves == nil {
			f.Moves = make(map[string]string, len(t.Moves))
		}
		f.Moves[string(label)] = cmd.String()
	}
	return f
}

// Load reads a YAML configuration file on top of Default(). Unknown keys are
// rejected.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes a configuration document from r and validates it.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	defaultMoves := cfg.Flight.Moves
	cfg.Flight.Moves = nil

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// A moves map in the file replaces the defaults instead of merging.
	if cfg.Flight.Moves == nil {
		cfg.Flight.Moves = defaultMoves
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks required fields and value ranges.
func (c *Config) validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baudRate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.PollInterval <= 0 {
		return fmt.Errorf("serial.pollInterval must be positive, got %s", c.Serial.PollInterval)
	}

	if c.Window.Capacity <= 0 {
		return fmt.Errorf("window.capacity must be positive, got %d", c.Window.Capacity)
	}

	if c.Decoder.TimestampMarker == "" {
		return fmt.Errorf("decoder.timestampMarker is required")
	}
	if c.Decoder.PayloadMarker == "" {
		return fmt.Errorf("decoder.payloadMarker is required")
	}
	if _, err := telemetry.ParsePolicy(c.Decoder.PartialFramePolicy); err != nil {
		return fmt.Errorf("decoder.partialFramePolicy: %w", err)
	}

	if c.Classifier.ModelPath == "" {
		return fmt.Errorf("classifier.modelPath is required")
	}

	v, err := c.Vocabulary()
	if err != nil {
		return err
	}
	if _, err := c.FlightTable(v); err != nil {
		return err
	}

	if c.Actuator.DroneAddr == "" {
		return fmt.Errorf("actuator.droneAddr is required")
	}
	if c.Actuator.AckTimeout <= 0 {
		return fmt.Errorf("actuator.ackTimeout must be positive, got %s", c.Actuator.AckTimeout)
	}

	if c.Events.MQTTBroker != "" && c.Events.MQTTTopic == "" {
		return fmt.Errorf("events.mqttTopic is required when events.mqttBroker is set")
	}
	if c.Events.PublishTimeout < 0 {
		return fmt.Errorf("events.publishTimeout must not be negative, got %s", c.Events.PublishTimeout)
	}

	return nil
}

// LogLevel parses settings.logLevel.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return 0, fmt.Errorf("settings.logLevel: %w", err)
	}
	return level, nil
}

// PartialFramePolicy parses decoder.partialFramePolicy.
func (c *Config) PartialFramePolicy() (telemetry.PartialFramePolicy, error) {
	return telemetry.ParsePolicy(c.Decoder.PartialFramePolicy)
}

// Vocabulary builds the gesture vocabulary from gestures.vocabulary.
func (c *Config) Vocabulary() (*gesture.Vocabulary, error) {
	v, err := gesture.NewVocabulary(c.Gestures.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("gestures.vocabulary: %w", err)
	}
	return v, nil
}

// FlightTable builds and validates the command mapping against v.
func (c *Config) FlightTable(v *gesture.Vocabulary) (flight.Table, error) {
	t := flight.Table{
		Liftoff:        gesture.Label(c.Flight.Liftoff),
		Land:           gesture.Label(c.Flight.Land),
		Neutral:        gesture.Label(c.Flight.Neutral),
		NeutralAction:  flight.NeutralAction(c.Flight.NeutralAction),
		Moves:          make(map[gesture.Label]flight.Command, len(c.Flight.Moves)),
		LandOnShutdown: c.Flight.LandOnShutdown,
	}

	labels := make([]string, 0, len(c.Flight.Moves))
	for label := range c.Flight.Moves {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		cmd, err := flight.ParseCommand(c.Flight.Moves[label])
		if err != nil {
			return flight.Table{}, fmt.Errorf("flight.moves.%s: %w", label, err)
		}
		t.Moves[gesture.Label(label)] = cmd
	}

	if err := t.Validate(v); err != nil {
		return flight.Table{}, fmt.Errorf("flight: %w", err)
	}
	return t, nil
}
