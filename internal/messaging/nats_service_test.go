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

package messaging

import (
	"testing"
	"time"

	"github.com/binyominzeev/leining-app/internal/config"
	"github.com/binyominzeev/leining-app/internal/events"
)

func testConfig() config.NATSConfig {
	return config.NATSConfig{
		Enabled:       true,
		URL:           "nats://localhost:4222",
		SubjectPrefix: "leining.practice",
		MaxReconnect:  1,
		ReconnectWait: time.Millisecond,
	}
}

func TestNATSService_Subjects(t *testing.T) {
	ns := NewNATSService(testConfig())

	if got := ns.AttemptsSubject(); got != "leining.practice.attempts" {
		t.Errorf("AttemptsSubject() = %q, want %q", got, "leining.practice.attempts")
	}
	if got := ns.MarkersSubject(); got != "leining.practice.markers" {
		t.Errorf("MarkersSubject() = %q, want %q", got, "leining.practice.markers")
	}
}

func TestNATSService_PublishWithoutConnection(t *testing.T) {
	ns := NewNATSService(testConfig())
	attempt := events.NewPracticeAttempt("gen-1-1")

	if err := ns.PublishAttempt(attempt); err == nil {
		t.Error("PublishAttempt() expected error without connection")
	}
	if err := ns.PublishMarkerReached(attempt); err == nil {
		t.Error("PublishMarkerReached() expected error without connection")
	}
	if _, err := ns.SubscribeToAttempts(func(*events.PracticeAttempt) {}); err == nil {
		t.Error("SubscribeToAttempts() expected error without connection")
	}
	if ns.IsConnected() {
		t.Error("IsConnected() = true without connection")
	}
}

func TestNATSService_CloseWithoutConnection(t *testing.T) {
	ns := NewNATSService(testConfig())

	// Close on an unconnected service must not panic
	ns.Close()
	ns.Close()
}
