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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binyominzeev/leining-app/internal/events"
)

func newTestStore(t *testing.T) *PracticeAttemptsStore {
	t.Helper()

	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "leining-test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPracticeAttemptsStore(db)
}

func newTestAttempt(t *testing.T, verseID string) *events.PracticeAttempt {
	t.Helper()

	attempt := events.NewPracticeAttempt(verseID)
	attempt.SetAudioMetadata([]float32{0.1, 0.2, 0.3}, 16000)
	attempt.SetTranscription("בראשית ברא אלהים")
	attempt.SetComparison("בְּרֵאשִׁית בָּרָא אֱלֹהִים", true)
	attempt.SetMarkerCheck("אלהים", true)
	attempt.Finish()
	return attempt
}

func TestPracticeAttemptsStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	attempt := newTestAttempt(t, "gen-1-1")

	require.NoError(t, store.Insert(attempt))

	loaded, err := store.GetByUUID(attempt.UUID)
	require.NoError(t, err)

	assert.Equal(t, attempt.UUID, loaded.UUID)
	assert.Equal(t, "gen-1-1", loaded.VerseID)
	assert.Equal(t, "בראשית ברא אלהים", loaded.Transcription)
	assert.True(t, loaded.ExactMatch)
	assert.InDelta(t, 1.0, loaded.Similarity, 1e-9)
	assert.True(t, loaded.MarkerReached)
	assert.Equal(t, "אלהים", loaded.MarkerWord)
	assert.Equal(t, attempt.AudioHash, loaded.AudioHash)
}

func TestPracticeAttemptsStore_InsertInvalid(t *testing.T) {
	store := newTestStore(t)

	attempt := events.NewPracticeAttempt("gen-1-1")
	attempt.UUID = ""

	assert.Error(t, store.Insert(attempt))
}

func TestPracticeAttemptsStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByUUID("no-such-uuid")
	assert.Error(t, err)
}

func TestPracticeAttemptsStore_ListAndCount(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(newTestAttempt(t, "gen-1-1")))
	}
	other := newTestAttempt(t, "gen-1-2")
	other.ExactMatch = false
	other.Similarity = 0.5
	require.NoError(t, store.Insert(other))

	t.Run("filter by verse", func(t *testing.T) {
		attempts, err := store.List(ListOptions{VerseID: "gen-1-1"})
		require.NoError(t, err)
		assert.Len(t, attempts, 3)

		count, err := store.Count(ListOptions{VerseID: "gen-1-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("filter by exact match", func(t *testing.T) {
		exact := false
		attempts, err := store.List(ListOptions{ExactMatch: &exact})
		require.NoError(t, err)
		assert.Len(t, attempts, 1)
		assert.Equal(t, "gen-1-2", attempts[0].VerseID)
	})

	t.Run("pagination", func(t *testing.T) {
		attempts, err := store.List(ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, attempts, 2)

		attempts, err = store.List(ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, attempts, 2)
	})

	t.Run("sort by similarity ascending", func(t *testing.T) {
		attempts, err := store.List(ListOptions{SortBy: "similarity", SortOrder: "ASC"})
		require.NoError(t, err)
		require.Len(t, attempts, 4)
		assert.InDelta(t, 0.5, attempts[0].Similarity, 1e-9)
	})

	t.Run("unknown sort column falls back to timestamp", func(t *testing.T) {
		_, err := store.List(ListOptions{SortBy: "uuid; DROP TABLE practice_attempts"})
		require.NoError(t, err)

		// Table still intact
		count, err := store.Count(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})
}

func TestPracticeAttemptsStore_GetByAudioHash(t *testing.T) {
	store := newTestStore(t)

	first := newTestAttempt(t, "gen-1-1")
	second := newTestAttempt(t, "gen-1-1")
	require.NoError(t, store.Insert(first))
	require.NoError(t, store.Insert(second))

	// Both attempts hash the same samples
	attempts, err := store.GetByAudioHash(first.AudioHash)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestPracticeAttemptsStore_Delete(t *testing.T) {
	store := newTestStore(t)
	attempt := newTestAttempt(t, "gen-1-1")

	require.NoError(t, store.Insert(attempt))
	require.NoError(t, store.Delete(attempt.UUID))

	_, err := store.GetByUUID(attempt.UUID)
	assert.Error(t, err)

	assert.Error(t, store.Delete(attempt.UUID))
}
