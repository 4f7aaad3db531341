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

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/binyominzeev/leining-app/internal/events"
	"github.com/binyominzeev/leining-app/internal/logging"
	"github.com/binyominzeev/leining-app/internal/storage"
)

// PracticeAttemptsHandler handles HTTP requests for practice attempts
type PracticeAttemptsHandler struct {
	store *storage.PracticeAttemptsStore
}

// NewPracticeAttemptsHandler creates a new practice attempts handler
func NewPracticeAttemptsHandler(store *storage.PracticeAttemptsStore) *PracticeAttemptsHandler {
	return &PracticeAttemptsHandler{store: store}
}

// ListPracticeAttemptsResponse represents the response for listing practice attempts
type ListPracticeAttemptsResponse struct {
	Attempts   []*events.PracticeAttempt `json:"attempts"`
	Total      int64                     `json:"total"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"page_size"`
	TotalPages int                       `json:"total_pages"`
}

// CreatePracticeAttemptRequest represents the request for recording an
// attempt whose transcription was produced elsewhere
type CreatePracticeAttemptRequest struct {
	VerseID       string  `json:"verse_id"`
	Transcription string  `json:"transcription"`
	Reference     string  `json:"reference,omitempty"`
	MarkerWord    string  `json:"marker_word,omitempty"`
	IgnoreNikud   *bool   `json:"ignore_nikud,omitempty"`
	AudioDuration float64 `json:"audio_duration,omitempty"`
	SampleRate    int     `json:"sample_rate,omitempty"`
}

// HandlePracticeAttempts handles GET /api/attempts and POST /api/attempts
func (h *PracticeAttemptsHandler) HandlePracticeAttempts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPracticeAttempts(w, r)
	case http.MethodPost:
		h.createPracticeAttempt(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandlePracticeAttemptByID handles GET /api/attempts/{id} and DELETE /api/attempts/{id}
func (h *PracticeAttemptsHandler) HandlePracticeAttemptByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/attempts/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Attempt ID is required", http.StatusBadRequest)
		return
	}
	uuid := pathParts[0]

	switch r.Method {
	case http.MethodGet:
		h.getPracticeAttemptByID(w, r, uuid)
	case http.MethodDelete:
		h.deletePracticeAttemptByID(w, r, uuid)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// listPracticeAttempts handles GET /api/attempts
func (h *PracticeAttemptsHandler) listPracticeAttempts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Pagination
	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100 // Limit maximum page size
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	// Filtering
	options := storage.ListOptions{
		VerseID:   query.Get("verse_id"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	options.ExactMatch = parseBoolParam(query.Get("exact_match"))
	options.MarkerReached = parseBoolParam(query.Get("marker_reached"))
	options.Success = parseBoolParam(query.Get("success"))

	if startTimeStr := query.Get("start_time"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			options.StartTime = &startTime
		}
	}
	if endTimeStr := query.Get("end_time"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			options.EndTime = &endTime
		}
	}

	// Total count for pagination
	total, err := h.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count practice attempts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	attempts, err := h.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list practice attempts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response := ListPracticeAttemptsResponse{
		Attempts:   attempts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	logging.Sugar.Infow("Practice attempts API request",
		"endpoint", "list",
		"page", page,
		"page_size", pageSize,
		"total_results", total,
		"filters", map[string]interface{}{
			"verse_id":       options.VerseID,
			"exact_match":    options.ExactMatch,
			"marker_reached": options.MarkerReached,
			"success":        options.Success,
		},
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// createPracticeAttempt handles POST /api/attempts
func (h *PracticeAttemptsHandler) createPracticeAttempt(w http.ResponseWriter, r *http.Request) {
	var req CreatePracticeAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.VerseID == "" {
		http.Error(w, "verse_id is required", http.StatusBadRequest)
		return
	}

	ignoreNikud := true
	if req.IgnoreNikud != nil {
		ignoreNikud = *req.IgnoreNikud
	}

	attempt := events.NewPracticeAttempt(req.VerseID)
	attempt.SetTranscription(req.Transcription)
	if req.Reference != "" {
		attempt.SetComparison(req.Reference, ignoreNikud)
	}
	if req.MarkerWord != "" {
		attempt.SetMarkerCheck(req.MarkerWord, ignoreNikud)
	}
	if req.AudioDuration > 0 {
		attempt.AudioDuration = req.AudioDuration
	}
	if req.SampleRate > 0 {
		attempt.SampleRate = req.SampleRate
	}
	attempt.Finish()

	if err := h.store.Insert(attempt); err != nil {
		logging.LogError(err, "Failed to create practice attempt",
			zap.String("verse_id", req.VerseID),
		)
		http.Error(w, "Failed to create practice attempt", http.StatusInternalServerError)
		return
	}

	logging.Sugar.Infow("Practice attempt created via API",
		"attempt_uuid", attempt.UUID,
		"verse_id", req.VerseID,
		"exact_match", attempt.ExactMatch,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(attempt)
}

// getPracticeAttemptByID handles GET /api/attempts/{id}
func (h *PracticeAttemptsHandler) getPracticeAttemptByID(w http.ResponseWriter, r *http.Request, uuid string) {
	attempt, err := h.store.GetByUUID(uuid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Practice attempt not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to get practice attempt",
			zap.String("uuid", uuid),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attempt)
}

// deletePracticeAttemptByID handles DELETE /api/attempts/{id}
func (h *PracticeAttemptsHandler) deletePracticeAttemptByID(w http.ResponseWriter, r *http.Request, uuid string) {
	if err := h.store.Delete(uuid); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Practice attempt not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to delete practice attempt",
			zap.String("uuid", uuid),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logging.Sugar.Infow("Practice attempt deleted via API",
		"attempt_uuid", uuid,
	)

	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses an integer parameter with a default value
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}

	if value, err := strconv.Atoi(param); err == nil {
		return value
	}

	return defaultValue
}

// parseBoolParam parses an optional boolean filter, nil when absent or invalid
func parseBoolParam(param string) *bool {
	if param == "" {
		return nil
	}

	if value, err := strconv.ParseBool(param); err == nil {
		return &value
	}

	return nil
}
