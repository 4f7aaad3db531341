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

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		reference   string
		transcribed string
		ignoreNikud bool
		wantExact   bool
		wantSim     float64
	}{
		{
			name:        "nikud-only difference ignored",
			reference:   "בְּרֵאשִׁית בָּרָא",
			transcribed: "בראשית ברא",
			ignoreNikud: true,
			wantExact:   true,
			wantSim:     1.0,
		},
		{
			name:        "nikud difference counts verbatim",
			reference:   "בְּרֵאשִׁית",
			transcribed: "בראשית",
			ignoreNikud: false,
			wantExact:   false,
			wantSim:     0.0,
		},
		{
			name:        "missing trailing word",
			reference:   "בראשית ברא אלהים",
			transcribed: "בראשית ברא",
			ignoreNikud: true,
			wantExact:   false,
			wantSim:     2.0 / 3.0,
		},
		{
			name:        "extra trailing word penalized",
			reference:   "בראשית ברא",
			transcribed: "בראשית ברא אלהים",
			ignoreNikud: true,
			wantExact:   false,
			wantSim:     2.0 / 3.0,
		},
		{
			name:        "positional mismatch in the middle",
			reference:   "בראשית ברא אלהים",
			transcribed: "בראשית אלהים ברא",
			ignoreNikud: true,
			wantExact:   false,
			wantSim:     1.0 / 3.0,
		},
		{
			name:        "both empty is a perfect match",
			reference:   "",
			transcribed: "",
			ignoreNikud: true,
			wantExact:   true,
			wantSim:     1.0,
		},
		{
			name:        "empty transcription against reference",
			reference:   "בראשית ברא",
			transcribed: "",
			ignoreNikud: true,
			wantExact:   false,
			wantSim:     0.0,
		},
		{
			name:        "whitespace-only inputs match empty",
			reference:   "   ",
			transcribed: "\t\n",
			ignoreNikud: true,
			wantExact:   true,
			wantSim:     1.0,
		},
		{
			name:        "non-hebrew input handled the same way",
			reference:   "in the beginning",
			transcribed: "in the end",
			ignoreNikud: true,
			wantExact:   false,
			wantSim:     2.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.reference, tt.transcribed, tt.ignoreNikud)
			if got.ExactMatch != tt.wantExact {
				t.Errorf("ExactMatch = %v, want %v", got.ExactMatch, tt.wantExact)
			}
			if !almostEqual(got.Similarity, tt.wantSim) {
				t.Errorf("Similarity = %f, want %f", got.Similarity, tt.wantSim)
			}
		})
	}
}

func TestCompare_SelfMatch(t *testing.T) {
	inputs := []string{
		"בְּרֵאשִׁית בָּרָא אֱלֹהִים אֵת הַשָּׁמַיִם וְאֵת הָאָרֶץ",
		"בראשית",
		"",
		"some latin text",
	}

	for _, s := range inputs {
		got := Compare(s, s, true)
		if !got.ExactMatch {
			t.Errorf("Compare(%q, %q).ExactMatch = false, want true", s, s)
		}
		if !almostEqual(got.Similarity, 1.0) {
			t.Errorf("Compare(%q, %q).Similarity = %f, want 1.0", s, s, got.Similarity)
		}
	}
}

func TestCheckMarker(t *testing.T) {
	tests := []struct {
		name        string
		transcribed string
		marker      string
		ignoreNikud bool
		want        bool
	}{
		{
			name:        "marker reached",
			transcribed: "בראשית ברא את השמים",
			marker:      "השמים",
			ignoreNikud: true,
			want:        true,
		},
		{
			name:        "marker not yet reached",
			transcribed: "בראשית ברא",
			marker:      "השמים",
			ignoreNikud: true,
			want:        false,
		},
		{
			name:        "marker with nikud matches bare token",
			transcribed: "בראשית ברא את השמים",
			marker:      "הַשָּׁמַיִם",
			ignoreNikud: true,
			want:        true,
		},
		{
			name:        "substring inside a word does not count",
			transcribed: "והשמימה עלה",
			marker:      "השמים",
			ignoreNikud: true,
			want:        false,
		},
		{
			name:        "empty marker never matches",
			transcribed: "בראשית ברא את השמים",
			marker:      "",
			ignoreNikud: true,
			want:        false,
		},
		{
			name:        "whitespace-only marker never matches",
			transcribed: "בראשית ברא",
			marker:      "   ",
			ignoreNikud: true,
			want:        false,
		},
		{
			name:        "verbatim marker requires identical marks",
			transcribed: "בראשית ברא הַשָּׁמַיִם",
			marker:      "השמים",
			ignoreNikud: false,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckMarker(tt.transcribed, tt.marker, tt.ignoreNikud); got != tt.want {
				t.Errorf("CheckMarker(%q, %q, %v) = %v, want %v",
					tt.transcribed, tt.marker, tt.ignoreNikud, got, tt.want)
			}
		})
	}
}

func TestFindWordPosition(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		want int
	}{
		{"third word", "בראשית ברא אלהים", "אלהים", 2},
		{"first word", "בראשית ברא אלהים", "בראשית", 0},
		{"word with nikud normalized", "בראשית ברא אלהים", "אֱלֹהִים", 2},
		{"absent word", "בראשית ברא אלהים", "השמים", -1},
		{"empty word", "בראשית ברא", "", -1},
		{"empty text", "", "בראשית", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindWordPosition(tt.text, tt.word, true); got != tt.want {
				t.Errorf("FindWordPosition(%q, %q) = %d, want %d", tt.text, tt.word, got, tt.want)
			}
		})
	}
}
