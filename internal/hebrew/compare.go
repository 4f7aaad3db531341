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

package hebrew

import "strings"

// ComparisonResult holds the outcome of comparing a transcribed attempt
// against a reference verse.
type ComparisonResult struct {
	ExactMatch bool    `json:"exact_match"`
	Similarity float64 `json:"similarity"`
}

// Compare grades a transcribed text against a reference verse. With
// ignoreNikud set, both texts are normalized before comparison; otherwise
// they are compared verbatim apart from trimming.
//
// Similarity is the fraction of word positions where both texts carry the
// same token, with max(len(reference), len(transcribed)) as denominator, so
// extra or missing trailing words count as mismatches. Two empty texts
// score 1.0.
func Compare(reference, transcribed string, ignoreNikud bool) ComparisonResult {
	var refNorm, transNorm string
	if ignoreNikud {
		refNorm = Normalize(reference)
		transNorm = Normalize(transcribed)
	} else {
		refNorm = strings.TrimSpace(reference)
		transNorm = strings.TrimSpace(transcribed)
	}

	refWords := SplitWords(refNorm)
	transWords := SplitWords(transNorm)

	longest := len(refWords)
	if len(transWords) > longest {
		longest = len(transWords)
	}
	if longest == 0 {
		return ComparisonResult{ExactMatch: refNorm == transNorm, Similarity: 1.0}
	}

	matches := 0
	for i := 0; i < len(refWords) && i < len(transWords); i++ {
		if refWords[i] == transWords[i] {
			matches++
		}
	}

	return ComparisonResult{
		ExactMatch: refNorm == transNorm,
		Similarity: float64(matches) / float64(longest),
	}
}

// CheckMarker reports whether the transcribed text has reached a marker
// word, e.g. the word carrying an Etnahta or Sof Pasuk. The marker must
// match a whole whitespace-delimited token; a substring inside a longer
// word does not count. An empty marker never matches.
func CheckMarker(transcribed, marker string, ignoreNikud bool) bool {
	var transNorm, markerNorm string
	if ignoreNikud {
		transNorm = Normalize(transcribed)
		markerNorm = Normalize(marker)
	} else {
		transNorm = strings.TrimSpace(transcribed)
		markerNorm = strings.TrimSpace(marker)
	}

	if markerNorm == "" {
		return false
	}

	for _, word := range SplitWords(transNorm) {
		if word == markerNorm {
			return true
		}
	}
	return false
}

// FindWordPosition returns the zero-based token index of word in text, or
// -1 when the word does not appear as a whole token.
func FindWordPosition(text, word string, ignoreNikud bool) int {
	var textNorm, wordNorm string
	if ignoreNikud {
		textNorm = Normalize(text)
		wordNorm = Normalize(word)
	} else {
		textNorm = text
		wordNorm = word
	}

	if wordNorm == "" {
		return -1
	}

	for i, w := range SplitWords(textNorm) {
		if w == wordNorm {
			return i
		}
	}
	return -1
}
