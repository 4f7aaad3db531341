/*
 * This file is part of Leining App (https://github.com/binyominzeev/leining-app).
 * Copyright (C) 2025 Binyomin Zeev
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package messaging publishes practice events to NATS so external tooling
// (dashboards, instructors following along) can react to attempts in real
// time. The broker is optional; the hub runs standalone without it.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/binyominzeev/leining-app/internal/config"
	"github.com/binyominzeev/leining-app/internal/events"
	"github.com/binyominzeev/leining-app/internal/logging"
)

// NATSService handles NATS messaging for the Leining hub
type NATSService struct {
	conn *nats.Conn
	cfg  config.NATSConfig
}

// MarkerEvent signals that a transcription reached a marker word, e.g. an
// Etnahta pause point the UI flashes on.
type MarkerEvent struct {
	AttemptUUID string `json:"attempt_uuid"`
	VerseID     string `json:"verse_id"`
	MarkerWord  string `json:"marker_word"`
	Transcribed string `json:"transcribed"`
	Timestamp   int64  `json:"timestamp"`
}

// NewNATSService creates a new NATS service instance
func NewNATSService(cfg config.NATSConfig) *NATSService {
	return &NATSService{cfg: cfg}
}

// Connect establishes connection to NATS server
func (ns *NATSService) Connect() error {
	logging.Sugar.Infow("🔌 Connecting to NATS", "url", ns.cfg.URL)

	opts := []nats.Option{
		nats.Name("leining-hub"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔄 NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.Sugar.Infow("✅ Connected to NATS server", "url", conn.ConnectedUrl())
	return nil
}

// AttemptsSubject returns the subject practice attempts are published on
func (ns *NATSService) AttemptsSubject() string {
	return ns.cfg.SubjectPrefix + ".attempts"
}

// MarkersSubject returns the subject marker events are published on
func (ns *NATSService) MarkersSubject() string {
	return ns.cfg.SubjectPrefix + ".markers"
}

// PublishAttempt publishes a graded practice attempt
func (ns *NATSService) PublishAttempt(attempt *events.PracticeAttempt) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal practice attempt: %w", err)
	}

	subject := ns.AttemptsSubject()
	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	logging.LogNATSEvent(subject, "publish")
	return nil
}

// PublishMarkerReached publishes a marker event for an attempt
func (ns *NATSService) PublishMarkerReached(attempt *events.PracticeAttempt) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	event := MarkerEvent{
		AttemptUUID: attempt.UUID,
		VerseID:     attempt.VerseID,
		MarkerWord:  attempt.MarkerWord,
		Transcribed: attempt.Transcription,
		Timestamp:   time.Now().Unix(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal marker event: %w", err)
	}

	subject := ns.MarkersSubject()
	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	logging.LogNATSEvent(subject, "publish")
	return nil
}

// SubscribeToAttempts subscribes to graded practice attempts
func (ns *NATSService) SubscribeToAttempts(handler func(*events.PracticeAttempt)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(ns.AttemptsSubject(), func(msg *nats.Msg) {
		var attempt events.PracticeAttempt
		if err := json.Unmarshal(msg.Data, &attempt); err != nil {
			logging.LogError(err, "Error unmarshaling practice attempt")
			return
		}

		handler(&attempt)
	})
}

// IsConnected reports whether a live NATS connection exists
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// Close drains and closes the NATS connection
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
		ns.conn = nil
	}
}
