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

// Package hebrew implements the text normalization and comparison core used
// to grade chanting practice attempts. All functions are pure and safe to
// call concurrently.
package hebrew

import "strings"

// Nikud (vowel points) and cantillation marks occupy the combining block
// U+0591..U+05C7 in the Hebrew Unicode range.
const (
	nikudFirst = '֑'
	nikudLast  = 'ׇ'
)

// IsNikud reports whether r is a Hebrew vowel point or cantillation mark.
func IsNikud(r rune) bool {
	return r >= nikudFirst && r <= nikudLast
}

// RemoveNikud strips all vowel points and cantillation marks from text,
// leaving only the base consonantal letters.
func RemoveNikud(text string) string {
	return strings.Map(func(r rune) rune {
		if IsNikud(r) {
			return -1
		}
		return r
	}, text)
}

// Normalize strips Nikud and collapses runs of whitespace into single
// spaces, trimming the ends. A string consisting only of marks and
// whitespace normalizes to the empty string.
func Normalize(text string) string {
	return strings.Join(strings.Fields(RemoveNikud(text)), " ")
}

// SplitWords splits Hebrew text into whitespace-delimited words.
func SplitWords(text string) []string {
	return strings.Fields(text)
}
