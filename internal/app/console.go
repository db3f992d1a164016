// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RunConsole subscribes to the pilot's event topic and prints one line per
// event to out until ctx is cancelled.
func RunConsole(ctx context.Context, broker, clientID, topic string, out io.Writer, logger *slog.Logger) error {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	defer client.Disconnect(250)
	logger.Info("console connected to MQTT broker", slog.String("broker", broker))

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e Event
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			logger.Warn("event unmarshal error", slog.String("error", err.Error()))
			return
		}
		fmt.Fprintln(out, FormatEvent(e))
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe to %s: %w", topic, token.Error())
	}
	logger.Info("console subscribed", slog.String("topic", topic))

	<-ctx.Done()
	logger.Info("console shutting down")
	return nil
}

// FormatEvent renders an event as a single console line.
func FormatEvent(e Event) string {
	ts := e.Time.Format("15:04:05.000")

	switch e.Kind {
	case EventClassification:
		return fmt.Sprintf("[GEST] %s #%-4d %-14s idx=%d state=%s", ts, e.Seq, e.Gesture, e.Index, e.State)
	case EventCommand:
		return fmt.Sprintf("[CMD ] %s #%-4d %-14s -> %-10s ack=%s %s state=%s", ts, e.Seq, e.Gesture, e.Command, e.Ack, e.AckText, e.State)
	case EventSuppressed:
		return fmt.Sprintf("[SKIP] %s #%-4d %-14s (%s) state=%s", ts, e.Seq, e.Gesture, e.Reason, e.State)
	case EventShutdown:
		return fmt.Sprintf("[EXIT] %s #%-4d %s ack=%s state=%s", ts, e.Seq, e.Command, e.Ack, e.State)
	default:
		return fmt.Sprintf("[????] %s #%-4d kind=%s", ts, e.Seq, e.Kind)
	}
}
