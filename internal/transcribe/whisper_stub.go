/*
Copyright (c) 2025 Binyomin Zeev

Licensed under the AGPLv3 License.
This file is part of the leining-app.
*/

//go:build !whisper

package transcribe

import (
	"fmt"

	"github.com/binyominzeev/leining-app/internal/logging"
)

// simulatedTranscription is returned when the hub is built without the
// whisper engine, so the comparison pipeline stays usable in development.
const simulatedTranscription = "בראשית ברא אלהים"

// WhisperTranscriber simulation implementation when whisper is disabled
type WhisperTranscriber struct {
	size string
}

// newWhisperTranscriber creates a simulated transcriber when whisper is disabled
func newWhisperTranscriber(modelsDir, size, language string) (*WhisperTranscriber, error) {
	logging.LogWarn("Whisper disabled, transcription will be simulated (build with -tags whisper to enable)")
	return &WhisperTranscriber{size: size}, nil
}

// Transcribe returns a fixed simulated transcription
func (wt *WhisperTranscriber) Transcribe(samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("empty audio data")
	}
	return simulatedTranscription, nil
}

// ModelSize returns the size label the simulated engine was loaded with
func (wt *WhisperTranscriber) ModelSize() string {
	return wt.size
}

// Close is a no-op for the simulated engine
func (wt *WhisperTranscriber) Close() error {
	return nil
}
