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

package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/binyominzeev/leining-app/internal/events"
	"github.com/binyominzeev/leining-app/internal/logging"
)

// PracticeAttemptsStore handles database operations for practice attempts
type PracticeAttemptsStore struct {
	db *Database
}

// NewPracticeAttemptsStore creates a new practice attempts store
func NewPracticeAttemptsStore(db *Database) *PracticeAttemptsStore {
	return &PracticeAttemptsStore{db: db}
}

// Insert stores a new practice attempt in the database
func (s *PracticeAttemptsStore) Insert(attempt *events.PracticeAttempt) error {
	if err := attempt.IsValid(); err != nil {
		return fmt.Errorf("invalid practice attempt: %w", err)
	}

	query := `
		INSERT INTO practice_attempts (
			uuid, verse_id, timestamp,
			audio_hash, audio_duration, sample_rate,
			transcription, reference_text, reference_normalized, transcription_normalized,
			ignore_nikud, exact_match, similarity, marker_word, marker_reached,
			processing_time_ms, success, error_message
		) VALUES (
			?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?
		)`

	_, err := s.db.DB().Exec(query,
		attempt.UUID, attempt.VerseID, attempt.Timestamp,
		attempt.AudioHash, attempt.AudioDuration, attempt.SampleRate,
		attempt.Transcription, attempt.ReferenceText, attempt.ReferenceNormalized, attempt.TranscriptionNormalized,
		attempt.IgnoreNikud, attempt.ExactMatch, attempt.Similarity, attempt.MarkerWord, attempt.MarkerReached,
		attempt.ProcessingTime, attempt.Success, attempt.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert practice attempt: %w", err)
	}

	logging.LogDatabaseOperation("INSERT", "practice_attempts")
	return nil
}

// GetByUUID retrieves a practice attempt by its UUID
func (s *PracticeAttemptsStore) GetByUUID(uuid string) (*events.PracticeAttempt, error) {
	query := selectColumns + ` WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanAttempt(row)
}

// List retrieves practice attempts with pagination and filtering
func (s *PracticeAttemptsStore) List(options ListOptions) ([]*events.PracticeAttempt, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*events.PracticeAttempt
	for rows.Next() {
		attempt, err := s.scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan practice attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating practice attempts: %w", err)
	}

	return attempts, nil
}

// Count returns the total number of practice attempts matching the filter
func (s *PracticeAttemptsStore) Count(options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	err := s.db.DB().QueryRow(countQuery, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count practice attempts: %w", err)
	}

	return count, nil
}

// GetRecentByVerse retrieves recent attempts for a specific verse
func (s *PracticeAttemptsStore) GetRecentByVerse(verseID string, limit int) ([]*events.PracticeAttempt, error) {
	options := ListOptions{
		VerseID: verseID,
		Limit:   limit,
	}
	return s.List(options)
}

// GetByAudioHash finds attempts with the same audio hash (repeat recordings)
func (s *PracticeAttemptsStore) GetByAudioHash(audioHash string) ([]*events.PracticeAttempt, error) {
	query := selectColumns + ` WHERE audio_hash = ? ORDER BY timestamp DESC`

	rows, err := s.db.DB().Query(query, audioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query by audio hash: %w", err)
	}
	defer rows.Close()

	var attempts []*events.PracticeAttempt
	for rows.Next() {
		attempt, err := s.scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan practice attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, nil
}

// Delete removes a practice attempt by UUID
func (s *PracticeAttemptsStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM practice_attempts WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete practice attempt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("practice attempt not found: %s", uuid)
	}

	logging.LogDatabaseOperation("DELETE", "practice_attempts")
	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	VerseID       string
	ExactMatch    *bool // nil = all
	MarkerReached *bool // nil = all
	Success       *bool // nil = all, true = success only, false = errors only
	StartTime     *time.Time
	EndTime       *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "similarity", "processing_time_ms"
	SortOrder string // "ASC", "DESC"
}

const selectColumns = `
	SELECT uuid, verse_id, timestamp,
		   audio_hash, audio_duration, sample_rate,
		   transcription, reference_text, reference_normalized, transcription_normalized,
		   ignore_nikud, exact_match, similarity, marker_word, marker_reached,
		   processing_time_ms, success, error_message
	FROM practice_attempts`

// allowed sort columns; anything else falls back to timestamp
var sortColumns = map[string]bool{
	"timestamp":          true,
	"similarity":         true,
	"processing_time_ms": true,
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *PracticeAttemptsStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := selectColumns + ` WHERE 1=1`

	var args []interface{}

	if options.VerseID != "" {
		query += " AND verse_id = ?"
		args = append(args, options.VerseID)
	}

	if options.ExactMatch != nil {
		query += " AND exact_match = ?"
		args = append(args, *options.ExactMatch)
	}

	if options.MarkerReached != nil {
		query += " AND marker_reached = ?"
		args = append(args, *options.MarkerReached)
	}

	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}

	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime)
	}

	sortBy := options.SortBy
	if !sortColumns[sortBy] {
		sortBy = "timestamp"
	}

	sortOrder := options.SortOrder
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanAttempt scans a database row into a PracticeAttempt struct
func (s *PracticeAttemptsStore) scanAttempt(scanner interface{}) (*events.PracticeAttempt, error) {
	var attempt events.PracticeAttempt

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&attempt.UUID, &attempt.VerseID, &attempt.Timestamp,
		&attempt.AudioHash, &attempt.AudioDuration, &attempt.SampleRate,
		&attempt.Transcription, &attempt.ReferenceText, &attempt.ReferenceNormalized, &attempt.TranscriptionNormalized,
		&attempt.IgnoreNikud, &attempt.ExactMatch, &attempt.Similarity, &attempt.MarkerWord, &attempt.MarkerReached,
		&attempt.ProcessingTime, &attempt.Success, &attempt.ErrorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("practice attempt not found")
		}
		return nil, err
	}

	return &attempt, nil
}
