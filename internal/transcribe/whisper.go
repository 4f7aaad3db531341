/*
Copyright (c) 2025 Binyomin Zeev

Licensed under the AGPLv3 License.
This file is part of the leining-app.
*/

//go:build whisper

package transcribe

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/binyominzeev/leining-app/internal/logging"
)

// WhisperTranscriber handles speech-to-text using whisper.cpp
type WhisperTranscriber struct {
	mu        sync.Mutex
	model     whisper.Model
	modelPath string
	size      string
	language  string
}

// newWhisperTranscriber loads a whisper.cpp model for the given size
func newWhisperTranscriber(modelsDir, size, language string) (*WhisperTranscriber, error) {
	modelPath := ModelPath(modelsDir, size)
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found at %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	logging.Sugar.Infow("✅ Whisper model loaded",
		"model_path", modelPath,
		"size", size,
		"language", language,
	)

	return &WhisperTranscriber{
		model:     model,
		modelPath: modelPath,
		size:      size,
		language:  language,
	}, nil
}

// Transcribe converts audio samples to text
func (wt *WhisperTranscriber) Transcribe(samples []float32, sampleRate int) (string, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.model == nil {
		return "", fmt.Errorf("whisper model not initialized")
	}

	ctx, err := wt.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	// Transcription only, never translation
	ctx.SetTranslate(false)
	if wt.language != "" {
		if err := ctx.SetLanguage(wt.language); err != nil {
			return "", fmt.Errorf("failed to set language %q: %w", wt.language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("failed to process audio: %w", err)
	}

	var transcript strings.Builder
	for {
		segment, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read segment: %w", err)
		}
		transcript.WriteString(segment.Text)
		transcript.WriteString(" ")
	}

	result := strings.TrimSpace(transcript.String())
	logging.Sugar.Debugw("🧠 Whisper transcription", "text", result)
	return result, nil
}

// ModelSize returns the size label of the loaded model
func (wt *WhisperTranscriber) ModelSize() string {
	return wt.size
}

// Close cleans up the whisper model
func (wt *WhisperTranscriber) Close() error {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.model != nil {
		wt.model.Close()
		wt.model = nil
		logging.Sugar.Infow("🧠 Whisper model closed", "model_path", wt.modelPath)
	}
	return nil
}
