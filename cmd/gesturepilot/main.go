// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/gesture_pilot/internal/app"
	"github.com/relabs-tech/gesture_pilot/internal/config"
)

var (
	configPath string
	logLevel   string

	mockFlag   bool
	dryRunFlag bool
	portFlag   string
	modelFlag  string
	brokerFlag string

	level  slog.LevelVar
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
)

var rootCmd = &cobra.Command{
	Use:           "gesturepilot",
	Short:         "Fly a drone with IMU gestures",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read the glove's serial telemetry and fly",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if portFlag != "" {
			cfg.Serial.Port = portFlag
		}
		return app.RunPilot(cmd.Context(), cfg, app.RunOptions{Mock: mockFlag, DryRun: dryRunFlag}, logger)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <capture.log>",
	Short: "Run a captured telemetry log through the loop without a drone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return app.RunPilot(cmd.Context(), cfg, app.RunOptions{ReplayPath: args[0], DryRun: true}, logger)
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Print the pilot's MQTT events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		broker := cfg.Events.MQTTBroker
		if brokerFlag != "" {
			broker = brokerFlag
		}
		if broker == "" {
			return fmt.Errorf("no MQTT broker: set events.mqttBroker or --broker")
		}
		return app.RunConsole(cmd.Context(), broker, cfg.Events.ClientID+"-console", cfg.Events.MQTTTopic, os.Stdout, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override settings.logLevel (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Override classifier.modelPath")

	runCmd.Flags().BoolVar(&mockFlag, "mock", false, "Use synthetic telemetry instead of the serial port")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Log commands instead of sending them to the drone")
	runCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Override serial.port")

	consoleCmd.Flags().StringVar(&brokerFlag, "broker", "", "Override events.mqttBroker")

	rootCmd.AddCommand(runCmd, replayCmd, consoleCmd)
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg, err = config.Parse(strings.NewReader(""))
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		cfg.Settings.LogLevel = logLevel
	}
	l, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	level.Set(l)

	if modelFlag != "" {
		cfg.Classifier.ModelPath = modelFlag
	}

	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
