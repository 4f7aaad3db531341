/*
Copyright (c) 2025 Binyomin Zeev

Licensed under the AGPLv3 License.
This file is part of the leining-app.
*/

// Package transcribe wraps the speech-to-text engine used to turn recorded
// chanting into Hebrew text. The engine is an explicit handle loaded from a
// model size, never global state; callers swap handles to change models.
package transcribe

import (
	"fmt"
	"path/filepath"
)

// ValidModelSizes lists the Whisper model sizes the hub accepts.
var ValidModelSizes = []string{"tiny", "base", "small", "medium", "large"}

// Transcriber defines the interface for speech-to-text engines
type Transcriber interface {
	// Transcribe converts audio samples to text
	Transcribe(samples []float32, sampleRate int) (string, error)

	// ModelSize returns the size label of the loaded model
	ModelSize() string

	// Close cleans up resources
	Close() error
}

// IsValidModelSize reports whether size names a supported Whisper model.
func IsValidModelSize(size string) bool {
	for _, s := range ValidModelSizes {
		if s == size {
			return true
		}
	}
	return false
}

// ModelPath resolves the ggml model file for a size inside modelsDir.
func ModelPath(modelsDir, size string) string {
	return filepath.Join(modelsDir, fmt.Sprintf("ggml-%s.bin", size))
}

// LoadEngine validates the requested model size and loads a transcriber
// handle for it. The returned handle owns the model; callers must Close it
// when swapping to a different size.
func LoadEngine(modelsDir, size, language string) (Transcriber, error) {
	if !IsValidModelSize(size) {
		return nil, fmt.Errorf("invalid model size %q, must be one of %v", size, ValidModelSizes)
	}

	return newWhisperTranscriber(modelsDir, size, language)
}
