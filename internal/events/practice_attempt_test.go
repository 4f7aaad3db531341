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

package events

import (
	"errors"
	"testing"
)

func TestNewPracticeAttempt(t *testing.T) {
	attempt := NewPracticeAttempt("gen-1-1")

	if attempt.UUID == "" {
		t.Error("expected generated UUID")
	}
	if attempt.VerseID != "gen-1-1" {
		t.Errorf("VerseID = %q, want %q", attempt.VerseID, "gen-1-1")
	}
	if attempt.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if !attempt.IgnoreNikud {
		t.Error("IgnoreNikud should default to true")
	}
	if !attempt.Success {
		t.Error("Success should default to true")
	}

	if err := attempt.IsValid(); err != nil {
		t.Errorf("IsValid() = %v, want nil", err)
	}
}

func TestPracticeAttempt_SetComparison(t *testing.T) {
	attempt := NewPracticeAttempt("gen-1-1")
	attempt.SetTranscription("בראשית ברא")

	result := attempt.SetComparison("בְּרֵאשִׁית בָּרָא", true)

	if !result.ExactMatch || !attempt.ExactMatch {
		t.Error("expected exact match when Nikud is ignored")
	}
	if attempt.Similarity != 1.0 {
		t.Errorf("Similarity = %f, want 1.0", attempt.Similarity)
	}
	if attempt.ReferenceNormalized != "בראשית ברא" {
		t.Errorf("ReferenceNormalized = %q, want %q", attempt.ReferenceNormalized, "בראשית ברא")
	}
	if attempt.TranscriptionNormalized != "בראשית ברא" {
		t.Errorf("TranscriptionNormalized = %q, want %q", attempt.TranscriptionNormalized, "בראשית ברא")
	}
}

func TestPracticeAttempt_SetMarkerCheck(t *testing.T) {
	attempt := NewPracticeAttempt("gen-1-1")
	attempt.SetTranscription("בראשית ברא את השמים")

	if !attempt.SetMarkerCheck("השמים", true) {
		t.Error("expected marker to be reached")
	}
	if !attempt.MarkerReached {
		t.Error("MarkerReached should be recorded")
	}
	if attempt.MarkerWord != "השמים" {
		t.Errorf("MarkerWord = %q, want %q", attempt.MarkerWord, "השמים")
	}

	if attempt.SetMarkerCheck("הארץ", true) {
		t.Error("expected marker not to be reached")
	}
}

func TestPracticeAttempt_SetAudioMetadata(t *testing.T) {
	attempt := NewPracticeAttempt("gen-1-1")
	samples := []float32{0.1, -0.2, 0.3, 0.0}
	attempt.SetAudioMetadata(samples, 2)

	if attempt.AudioHash == "" {
		t.Error("expected audio hash to be set")
	}
	if attempt.AudioDuration != 2.0 {
		t.Errorf("AudioDuration = %f, want 2.0", attempt.AudioDuration)
	}
	if attempt.SampleRate != 2 {
		t.Errorf("SampleRate = %d, want 2", attempt.SampleRate)
	}

	// Same samples hash the same, different samples differ
	other := NewPracticeAttempt("gen-1-2")
	other.SetAudioMetadata(samples, 2)
	if other.AudioHash != attempt.AudioHash {
		t.Error("identical samples should produce identical hashes")
	}
	other.SetAudioMetadata([]float32{0.9}, 2)
	if other.AudioHash == attempt.AudioHash {
		t.Error("different samples should produce different hashes")
	}
}

func TestPracticeAttempt_SetError(t *testing.T) {
	attempt := NewPracticeAttempt("gen-1-1")
	attempt.SetError(errors.New("transcription failed"))

	if attempt.Success {
		t.Error("Success should be false after SetError")
	}
	if attempt.ErrorMessage != "transcription failed" {
		t.Errorf("ErrorMessage = %q, want %q", attempt.ErrorMessage, "transcription failed")
	}
}

func TestPracticeAttempt_IsValid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PracticeAttempt)
		wantErr bool
	}{
		{"valid", func(pa *PracticeAttempt) {}, false},
		{"missing uuid", func(pa *PracticeAttempt) { pa.UUID = "" }, true},
		{"missing verse id", func(pa *PracticeAttempt) { pa.VerseID = "" }, true},
		{"similarity above one", func(pa *PracticeAttempt) { pa.Similarity = 1.5 }, true},
		{"negative similarity", func(pa *PracticeAttempt) { pa.Similarity = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempt := NewPracticeAttempt("gen-1-1")
			tt.mutate(attempt)

			err := attempt.IsValid()
			if tt.wantErr && err == nil {
				t.Error("IsValid() expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("IsValid() unexpected error: %v", err)
			}
		})
	}
}
