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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/binyominzeev/leining-app/internal/api"
	"github.com/binyominzeev/leining-app/internal/config"
	"github.com/binyominzeev/leining-app/internal/events"
	"github.com/binyominzeev/leining-app/internal/hebrew"
	"github.com/binyominzeev/leining-app/internal/logging"
	"github.com/binyominzeev/leining-app/internal/messaging"
	"github.com/binyominzeev/leining-app/internal/storage"
	"github.com/binyominzeev/leining-app/internal/transcribe"
)

const (
	serviceName    = "Leining App API"
	serviceVersion = "2.0.0"

	// Uploaded audio is short practice recordings, cap the form size.
	maxUploadBytes = 32 << 20
)

// Server is the Leining hub: HTTP API, WebSocket audio streaming and the
// speech-to-text pipeline behind them.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	engineMu sync.RWMutex
	engine   transcribe.Transcriber

	store           *storage.PracticeAttemptsStore
	attemptsHandler *api.PracticeAttemptsHandler
	natsService     *messaging.NATSService

	// Server context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server and loads the default speech-to-text engine.
func New(cfg *config.Config, store *storage.PracticeAttemptsStore, natsService *messaging.NATSService) (*Server, error) {
	mux := http.NewServeMux()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:             cfg,
		mux:             mux,
		store:           store,
		attemptsHandler: api.NewPracticeAttemptsHandler(store),
		natsService:     natsService,
		ctx:             ctx,
		cancel:          cancel,
	}

	engine, err := transcribe.LoadEngine(cfg.Whisper.ModelsDir, cfg.Whisper.ModelSize, cfg.Whisper.Language)
	if err != nil {
		// The hub still serves comparison and history endpoints without an
		// engine. Transcription endpoints report 503 until a model loads.
		logging.LogWarn("Speech-to-text engine not loaded at startup",
			zap.String("model_size", cfg.Whisper.ModelSize),
			zap.Error(err),
		)
	} else {
		s.engine = engine
	}

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()

	return s, nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 Leining hub starting",
		"addr", s.server.Addr,
		"model_size", s.cfg.Whisper.ModelSize,
		"engine_loaded", s.engineLoaded())

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server and releases the engine.
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down Leining hub")

	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.engineMu.Lock()
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			logging.LogWarn("Failed to close speech-to-text engine", zap.Error(err))
		}
		s.engine = nil
	}
	s.engineMu.Unlock()

	logging.Sugar.Infow("✅ Leining hub shut down successfully")
	return nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up HTTP routing
func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/model/load", s.handleModelLoad)
	s.mux.HandleFunc("/api/audio/upload", s.handleAudioUpload)
	s.mux.HandleFunc("/api/transcribe", s.handleTranscribe)
	s.mux.HandleFunc("/api/compare", s.handleCompare)
	s.mux.HandleFunc("/api/marker/check", s.handleMarkerCheck)
	s.mux.HandleFunc("/api/attempts", s.attemptsHandler.HandlePracticeAttempts)
	s.mux.HandleFunc("/api/attempts/", s.attemptsHandler.HandlePracticeAttemptByID)
	s.mux.HandleFunc("/ws/audio", s.handleAudioWebSocket)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"transcribe_endpoint", "/api/transcribe",
		"compare_endpoint", "/api/compare",
		"attempts_endpoint", "/api/attempts",
		"websocket_endpoint", "/ws/audio")
}

func (s *Server) engineLoaded() bool {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	return s.engine != nil
}

func (s *Server) currentModelSize() string {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	if s.engine == nil {
		return ""
	}
	return s.engine.ModelSize()
}

// handleRoot provides basic service information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":        serviceName,
		"version":        serviceVersion,
		"status":         "running",
		"whisper_loaded": s.engineLoaded(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, info); err != nil {
		logging.Sugar.Errorw("Failed to write root response", "error", err)
	}
}

// handleHealth provides system health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":               "healthy",
		"whisper_model_loaded": s.engineLoaded(),
		"model_size":           s.currentModelSize(),
		"nats_connected":       s.natsService != nil && s.natsService.IsConnected(),
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, health); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}

// handleModelLoad loads or reloads the speech-to-text model
func (s *Server) handleModelLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	modelSize := r.URL.Query().Get("model_size")
	if modelSize == "" {
		modelSize = "tiny"
	}

	if !transcribe.IsValidModelSize(modelSize) {
		http.Error(w,
			fmt.Sprintf("Invalid model size. Must be one of: %s", strings.Join(transcribe.ValidModelSizes, ", ")),
			http.StatusBadRequest)
		return
	}

	engine, err := transcribe.LoadEngine(s.cfg.Whisper.ModelsDir, modelSize, s.cfg.Whisper.Language)
	if err != nil {
		logging.LogError(err, "Failed to load speech-to-text model",
			zap.String("model_size", modelSize),
		)
		http.Error(w, fmt.Sprintf("Error loading model: %v", err), http.StatusInternalServerError)
		return
	}

	s.engineMu.Lock()
	old := s.engine
	s.engine = engine
	s.engineMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logging.LogWarn("Failed to close previous engine", zap.Error(err))
		}
	}

	logging.Sugar.Infow("Speech-to-text model loaded",
		"model_size", modelSize)

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]interface{}{
		"status":     "success",
		"message":    fmt.Sprintf("Whisper %s model loaded", modelSize),
		"model_size": modelSize,
	}); err != nil {
		logging.Sugar.Errorw("Failed to write model load response", "error", err)
	}
}

// handleAudioUpload stores a reference recording for a verse
func (s *Server) handleAudioUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	verseID := r.FormValue("verse_id")
	if verseID == "" {
		verseID = "default"
	}

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(s.cfg.Storage.AudioDir, 0o750); err != nil {
		logging.LogError(err, "Failed to create reference audio directory")
		http.Error(w, "Error uploading audio", http.StatusInternalServerError)
		return
	}

	// The verse ID names the file, strip anything path-like.
	safeID := filepath.Base(verseID)
	savePath := filepath.Join(s.cfg.Storage.AudioDir, safeID+filepath.Ext(header.Filename))
	if err := os.WriteFile(savePath, content, 0o600); err != nil {
		logging.LogError(err, "Failed to save reference audio",
			zap.String("verse_id", verseID),
		)
		http.Error(w, "Error uploading audio", http.StatusInternalServerError)
		return
	}

	logging.Sugar.Infow("Reference audio uploaded",
		"verse_id", verseID,
		"filename", header.Filename,
		"size_bytes", len(content))

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]interface{}{
		"status":     "success",
		"message":    "Reference audio uploaded",
		"verse_id":   verseID,
		"filename":   header.Filename,
		"size_bytes": len(content),
	}); err != nil {
		logging.Sugar.Errorw("Failed to write upload response", "error", err)
	}
}

// TranscriptionResponse is the response body of POST /api/transcribe
type TranscriptionResponse struct {
	Transcription  string   `json:"transcription"`
	Language       string   `json:"language"`
	ProcessingTime float64  `json:"processing_time"`
	AttemptUUID    string   `json:"attempt_uuid,omitempty"`
	ExactMatch     *bool    `json:"exact_match,omitempty"`
	Similarity     *float64 `json:"similarity,omitempty"`
	MarkerReached  *bool    `json:"marker_reached,omitempty"`
}

// handleTranscribe transcribes an uploaded WAV file, optionally grades it
// against a reference verse, and records the attempt.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.engineLoaded() {
		http.Error(w, "Whisper model not loaded. Please load model first at /api/model/load",
			http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	wavData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	verseID := r.FormValue("verse_id")
	if verseID == "" {
		verseID = "default"
	}

	ignoreNikud := true
	if v := r.FormValue("ignore_nikud"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			ignoreNikud = parsed
		}
	}

	attempt, err := s.runPipeline(wavData, verseID, r.FormValue("reference"), r.FormValue("marker_word"), ignoreNikud)
	if err != nil {
		logging.LogError(err, "Transcription failed",
			zap.String("verse_id", verseID),
		)
		http.Error(w, fmt.Sprintf("Transcription error: %v", err), http.StatusInternalServerError)
		return
	}

	response := TranscriptionResponse{
		Transcription:  attempt.Transcription,
		Language:       s.cfg.Whisper.Language,
		ProcessingTime: float64(attempt.ProcessingTime) / 1000.0,
		AttemptUUID:    attempt.UUID,
	}
	if attempt.ReferenceText != "" {
		response.ExactMatch = &attempt.ExactMatch
		response.Similarity = &attempt.Similarity
	}
	if attempt.MarkerWord != "" {
		response.MarkerReached = &attempt.MarkerReached
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, response); err != nil {
		logging.Sugar.Errorw("Failed to write transcription response", "error", err)
	}
}

// runPipeline decodes WAV audio, transcribes it, grades it against the
// reference verse when one is given, persists the attempt and publishes it.
func (s *Server) runPipeline(wavData []byte, verseID, reference, markerWord string, ignoreNikud bool) (*events.PracticeAttempt, error) {
	attempt := events.NewPracticeAttempt(verseID)

	samples, sampleRate, err := transcribe.DecodeWAV(wavData)
	if err != nil {
		attempt.SetError(err)
		s.recordAttempt(attempt)
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	attempt.SetAudioMetadata(samples, sampleRate)

	logging.LogTranscription(verseID, "started",
		zap.Float64("audio_duration", attempt.AudioDuration),
		zap.Int("sample_rate", sampleRate),
	)

	s.engineMu.RLock()
	engine := s.engine
	s.engineMu.RUnlock()
	if engine == nil {
		err := fmt.Errorf("speech-to-text engine not loaded")
		attempt.SetError(err)
		s.recordAttempt(attempt)
		return nil, err
	}

	transcription, err := engine.Transcribe(samples, sampleRate)
	if err != nil {
		attempt.SetError(err)
		s.recordAttempt(attempt)
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	attempt.SetTranscription(transcription)

	if reference != "" {
		result := attempt.SetComparison(reference, ignoreNikud)
		logging.LogComparison(result.ExactMatch, result.Similarity,
			zap.String("verse_id", verseID),
		)
	}
	if markerWord != "" {
		if attempt.SetMarkerCheck(markerWord, ignoreNikud) {
			s.publishMarkerReached(attempt)
		}
	}

	attempt.Finish()
	s.recordAttempt(attempt)

	logging.LogTranscription(verseID, "completed",
		zap.String("attempt_uuid", attempt.UUID),
		zap.Int64("processing_time_ms", attempt.ProcessingTime),
	)

	return attempt, nil
}

// recordAttempt persists the attempt and publishes it on NATS. Failures are
// logged but do not fail the request, the transcription already happened.
func (s *Server) recordAttempt(attempt *events.PracticeAttempt) {
	if s.store != nil {
		if err := s.store.Insert(attempt); err != nil {
			logging.LogError(err, "Failed to persist practice attempt",
				zap.String("attempt_uuid", attempt.UUID),
			)
		} else {
			logging.LogPracticeAttempt(attempt, "Practice attempt recorded",
				zap.String("verse_id", attempt.VerseID),
				zap.Bool("success", attempt.Success),
			)
		}
	}

	if s.natsService != nil && s.natsService.IsConnected() {
		if err := s.natsService.PublishAttempt(attempt); err != nil {
			logging.LogError(err, "Failed to publish practice attempt",
				zap.String("attempt_uuid", attempt.UUID),
			)
		}
	}
}

func (s *Server) publishMarkerReached(attempt *events.PracticeAttempt) {
	if s.natsService == nil || !s.natsService.IsConnected() {
		return
	}
	if err := s.natsService.PublishMarkerReached(attempt); err != nil {
		logging.LogError(err, "Failed to publish marker event",
			zap.String("attempt_uuid", attempt.UUID),
		)
	}
}

// ComparisonRequest is the request body of POST /api/compare
type ComparisonRequest struct {
	Reference   string `json:"reference"`
	Transcribed string `json:"transcribed"`
	IgnoreNikud *bool  `json:"ignore_nikud"`
}

// ComparisonResponse is the response body of POST /api/compare
type ComparisonResponse struct {
	ExactMatch            bool    `json:"exact_match"`
	Similarity            float64 `json:"similarity"`
	ReferenceNormalized   string  `json:"reference_normalized"`
	TranscribedNormalized string  `json:"transcribed_normalized"`
}

// handleCompare grades a transcription against a reference verse
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ComparisonRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ignoreNikud := true
	if req.IgnoreNikud != nil {
		ignoreNikud = *req.IgnoreNikud
	}

	result := hebrew.Compare(req.Reference, req.Transcribed, ignoreNikud)

	response := ComparisonResponse{
		ExactMatch: result.ExactMatch,
		Similarity: result.Similarity,
	}
	if ignoreNikud {
		response.ReferenceNormalized = hebrew.Normalize(req.Reference)
		response.TranscribedNormalized = hebrew.Normalize(req.Transcribed)
	} else {
		response.ReferenceNormalized = req.Reference
		response.TranscribedNormalized = req.Transcribed
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, response); err != nil {
		logging.Sugar.Errorw("Failed to write comparison response", "error", err)
	}
}

// MarkerCheckRequest is the request body of POST /api/marker/check
type MarkerCheckRequest struct {
	Transcribed string `json:"transcribed"`
	MarkerWord  string `json:"marker_word"`
	IgnoreNikud *bool  `json:"ignore_nikud"`
}

// handleMarkerCheck checks whether a transcription reached a marker word
func (s *Server) handleMarkerCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MarkerCheckRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ignoreNikud := true
	if req.IgnoreNikud != nil {
		ignoreNikud = *req.IgnoreNikud
	}

	reached := hebrew.CheckMarker(req.Transcribed, req.MarkerWord, ignoreNikud)

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]interface{}{
		"marker_reached": reached,
		"marker_word":    req.MarkerWord,
		"transcribed":    req.Transcribed,
	}); err != nil {
		logging.Sugar.Errorw("Failed to write marker check response", "error", err)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

func readJSON(r *http.Request, data interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()

	return json.Unmarshal(body, data)
}
