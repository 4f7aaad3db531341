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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/binyominzeev/leining-app/internal/hebrew"
)

// PracticeAttempt records one graded chanting attempt against a reference
// verse, with full traceability from audio to score.
type PracticeAttempt struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	VerseID   string    `json:"verse_id" db:"verse_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Audio metadata
	AudioHash     string  `json:"audio_hash" db:"audio_hash"`
	AudioDuration float64 `json:"audio_duration" db:"audio_duration"`
	SampleRate    int     `json:"sample_rate" db:"sample_rate"`

	// Transcription and grading
	Transcription           string  `json:"transcription" db:"transcription"`
	ReferenceText           string  `json:"reference_text" db:"reference_text"`
	ReferenceNormalized     string  `json:"reference_normalized" db:"reference_normalized"`
	TranscriptionNormalized string  `json:"transcription_normalized" db:"transcription_normalized"`
	IgnoreNikud             bool    `json:"ignore_nikud" db:"ignore_nikud"`
	ExactMatch              bool    `json:"exact_match" db:"exact_match"`
	Similarity              float64 `json:"similarity" db:"similarity"`
	MarkerWord              string  `json:"marker_word,omitempty" db:"marker_word"`
	MarkerReached           bool    `json:"marker_reached" db:"marker_reached"`

	// Outcome
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewPracticeAttempt creates a new PracticeAttempt with generated UUID and
// current timestamp.
func NewPracticeAttempt(verseID string) *PracticeAttempt {
	return &PracticeAttempt{
		UUID:        uuid.NewString(),
		VerseID:     verseID,
		Timestamp:   time.Now(),
		IgnoreNikud: true,
		Success:     true,
	}
}

// GetUUID returns the attempt's UUID, satisfying the logging helpers.
func (pa *PracticeAttempt) GetUUID() string {
	return pa.UUID
}

// SetAudioMetadata sets audio-related metadata for the attempt
func (pa *PracticeAttempt) SetAudioMetadata(samples []float32, sampleRate int) {
	pa.AudioHash = hashSamples(samples)
	if sampleRate > 0 {
		pa.AudioDuration = float64(len(samples)) / float64(sampleRate)
	}
	pa.SampleRate = sampleRate
}

// SetTranscription sets the transcription result
func (pa *PracticeAttempt) SetTranscription(transcription string) {
	pa.Transcription = transcription
}

// SetComparison grades the attempt against a reference verse and stores
// both the score and the normalized texts that were compared.
func (pa *PracticeAttempt) SetComparison(reference string, ignoreNikud bool) hebrew.ComparisonResult {
	pa.ReferenceText = reference
	pa.IgnoreNikud = ignoreNikud

	result := hebrew.Compare(reference, pa.Transcription, ignoreNikud)
	pa.ExactMatch = result.ExactMatch
	pa.Similarity = result.Similarity

	if ignoreNikud {
		pa.ReferenceNormalized = hebrew.Normalize(reference)
		pa.TranscriptionNormalized = hebrew.Normalize(pa.Transcription)
	} else {
		pa.ReferenceNormalized = reference
		pa.TranscriptionNormalized = pa.Transcription
	}

	return result
}

// SetMarkerCheck records whether the attempt reached the marker word.
func (pa *PracticeAttempt) SetMarkerCheck(markerWord string, ignoreNikud bool) bool {
	pa.MarkerWord = markerWord
	pa.MarkerReached = hebrew.CheckMarker(pa.Transcription, markerWord, ignoreNikud)
	return pa.MarkerReached
}

// Finish marks processing as complete and records the elapsed time.
func (pa *PracticeAttempt) Finish() {
	pa.ProcessingTime = time.Since(pa.Timestamp).Milliseconds()
}

// SetError marks the attempt as failed with an error message
func (pa *PracticeAttempt) SetError(err error) {
	pa.Success = false
	pa.ErrorMessage = err.Error()
	pa.ProcessingTime = time.Since(pa.Timestamp).Milliseconds()
}

// hashSamples generates a SHA-256 hash of the audio samples for duplicate
// detection
func hashSamples(samples []float32) string {
	hasher := sha256.New()

	buf := make([]byte, 4)
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(sample))
		hasher.Write(buf)
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// IsValid performs basic validation on the practice attempt
func (pa *PracticeAttempt) IsValid() error {
	if pa.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if pa.VerseID == "" {
		return fmt.Errorf("verseID is required")
	}

	if pa.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if pa.Similarity < 0 || pa.Similarity > 1 {
		return fmt.Errorf("similarity must be between 0 and 1")
	}

	return nil
}

// String returns a human-readable representation of the attempt
func (pa *PracticeAttempt) String() string {
	return fmt.Sprintf("PracticeAttempt{UUID: %s, VerseID: %s, Transcription: %q, ExactMatch: %t, Similarity: %.2f, MarkerReached: %t}",
		pa.UUID, pa.VerseID, pa.Transcription, pa.ExactMatch, pa.Similarity, pa.MarkerReached)
}
