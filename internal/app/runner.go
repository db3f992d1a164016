// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/gesture_pilot/internal/actuator"
	"github.com/relabs-tech/gesture_pilot/internal/config"
	"github.com/relabs-tech/gesture_pilot/internal/flight"
	"github.com/relabs-tech/gesture_pilot/internal/gesture"
	"github.com/relabs-tech/gesture_pilot/internal/sensors"
	"github.com/relabs-tech/gesture_pilot/internal/telemetry"
	"github.com/relabs-tech/gesture_pilot/internal/window"
)

// mockInterval paces the synthetic source at roughly the firmware's rate.
const mockInterval = 10 * time.Millisecond

// RunOptions selects where telemetry comes from and whether commands reach
// the drone.
type RunOptions struct {
	ReplayPath string // read a captured log instead of the serial port
	Mock       bool   // synthesize telemetry
	DryRun     bool   // log commands instead of sending them
}

// RunPilot builds the control loop from cfg and runs it until ctx is
// cancelled, the source ends, or a fatal error occurs.
func RunPilot(ctx context.Context, cfg *config.Config, opts RunOptions, logger *slog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	deps, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	deps.AckTimeout = cfg.Actuator.AckTimeout.Std()
	deps.Handshake = cfg.Actuator.Handshake

	deps.Source, err = openSource(cfg, opts, logger)
	if err != nil {
		return err
	}

	deps.Transport, err = openTransport(cfg, opts, logger)
	if err != nil {
		closeLogged(logger, "telemetry source", deps.Source)
		return err
	}

	sinks, stopWeb, err := openSinks(cfg, runID, logger)
	if err != nil {
		closeLogged(logger, "telemetry source", deps.Source)
		closeLogged(logger, "transport", deps.Transport)
		return err
	}
	defer func() {
		stopWeb()
		if err := sinks.Close(); err != nil {
			logger.Warn("closing event sinks", slog.String("error", err.Error()))
		}
	}()

	options := []func(*Pilot){WithLogger(logger), WithRunID(runID)}
	if len(sinks) > 0 {
		options = append(options, WithSink(sinks))
	}

	pilot, err := NewPilot(deps, options...)
	if err != nil {
		closeLogged(logger, "telemetry source", deps.Source)
		closeLogged(logger, "transport", deps.Transport)
		return err
	}

	return pilot.Run(ctx)
}

// buildPipeline assembles the pure stages: decoding, windowing,
// classification and mapping.
func buildPipeline(cfg *config.Config) (Deps, error) {
	policy, err := cfg.PartialFramePolicy()
	if err != nil {
		return Deps{}, err
	}

	w, err := window.New(cfg.Window.Capacity)
	if err != nil {
		return Deps{}, err
	}
	vec, err := window.NewVectorizer(cfg.Window.Capacity)
	if err != nil {
		return Deps{}, err
	}

	vocab, err := cfg.Vocabulary()
	if err != nil {
		return Deps{}, err
	}

	model, err := gesture.LoadCentroidModel(cfg.Classifier.ModelPath)
	if err != nil {
		return Deps{}, err
	}
	if model.FeatureLen() != vec.Len() {
		return Deps{}, fmt.Errorf("%w: model expects %d features, window of %d samples yields %d",
			gesture.ErrContractViolation, model.FeatureLen(), cfg.Window.Capacity, vec.Len())
	}

	recognizer, err := gesture.NewRecognizer(model, vocab)
	if err != nil {
		return Deps{}, err
	}

	table, err := cfg.FlightTable(vocab)
	if err != nil {
		return Deps{}, err
	}
	mapper, err := flight.NewMapper(table, vocab)
	if err != nil {
		return Deps{}, err
	}

	return Deps{
		Decoder: telemetry.NewDecoder(
			telemetry.WithTimestampMarker(cfg.Decoder.TimestampMarker),
			telemetry.WithPayloadMarker(cfg.Decoder.PayloadMarker),
		),
		Accumulator: telemetry.NewAccumulator(policy),
		Window:      w,
		Vectorizer:  vec,
		Recognizer:  recognizer,
		Mapper:      mapper,
	}, nil
}

func openSource(cfg *config.Config, opts RunOptions, logger *slog.Logger) (sensors.LineSource, error) {
	switch {
	case opts.ReplayPath != "":
		logger.Info("replaying telemetry", slog.String("path", opts.ReplayPath))
		return sensors.OpenReplay(opts.ReplayPath)
	case opts.Mock:
		logger.Info("using mock telemetry source")
		return sensors.NewMockSource(mockInterval), nil
	default:
		src, err := sensors.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.PollInterval.Std())
		if err != nil {
			return nil, err
		}
		logger.Info("serial port opened",
			slog.String("port", cfg.Serial.Port),
			slog.Int("baud", cfg.Serial.BaudRate))
		return src, nil
	}
}

func openTransport(cfg *config.Config, opts RunOptions, logger *slog.Logger) (actuator.Transport, error) {
	if opts.DryRun || opts.ReplayPath != "" {
		return actuator.NewDryRunTransport(logger), nil
	}

	t, err := actuator.DialUDP(cfg.Actuator.DroneAddr, cfg.Actuator.LocalAddr)
	if err != nil {
		return nil, err
	}
	logger.Info("drone link ready",
		slog.String("drone", cfg.Actuator.DroneAddr),
		slog.String("local", t.LocalAddr().String()))
	return t, nil
}

// openSinks connects the configured event sinks. The returned stop function
// shuts the web server down.
func openSinks(cfg *config.Config, runID string, logger *slog.Logger) (Sinks, func(), error) {
	var sinks Sinks
	stop := func() {}

	if cfg.Events.MQTTBroker != "" {
		clientID := fmt.Sprintf("%s-%s", cfg.Events.ClientID, runID[:8])
		s, err := NewMQTTSink(cfg.Events.MQTTBroker, clientID, cfg.Events.MQTTTopic, cfg.Events.PublishTimeout.Std(), logger)
		if err != nil {
			return nil, stop, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Events.WebAddr != "" {
		hub := NewHub(logger)
		srv := &http.Server{
			Addr:              cfg.Events.WebAddr,
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("web server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("web server failed", slog.String("error", err.Error()))
			}
		}()
		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			closeLogged(logger, "websocket hub", hub)
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("shutting down web server", slog.String("error", err.Error()))
			}
		}
		sinks = append(sinks, hub)
	}

	return sinks, stop, nil
}

// closeLogged closes c and logs a failure instead of returning it.
func closeLogged(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("closing "+what, slog.String("error", err.Error()))
	}
}
