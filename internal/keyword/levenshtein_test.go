package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		// Identical strings
		{"identical empty", "", "", 0},
		{"identical word", "dharma", "dharma", 0},
		{"identical devanagari", "कर्म", "कर्म", 0},

		// Empty string cases
		{"empty a", "", "karma", 5},
		{"empty b", "karma", "", 5},

		// Single edits
		{"one substitution", "fear", "bear", 1},
		{"one insertion", "peace", "peaces", 1},
		{"one deletion", "duty", "dut", 1},

		// Common misspellings of corpus words
		{"krishna to krsna", "krishna", "krsna", 2},
		{"detachment to detatchment", "detachment", "detatchment", 1},
		{"arjuna to arjun", "arjuna", "arjun", 1},
		{"kitten to sitting", "kitten", "sitting", 3},

		// Case sensitivity
		{"case difference", "Karma", "karma", 1},

		// Diacritics count per rune
		{"diacritic substitution", "yogī", "yogi", 1},

		// Transposition counts as two edits
		{"transposition", "ab", "ba", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LevenshteinDistance(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, result, tt.expected)
			}
			resultReverse := LevenshteinDistance(tt.b, tt.a)
			if result != resultReverse {
				t.Errorf("LevenshteinDistance is not symmetric: (%q,%q)=%d, (%q,%q)=%d",
					tt.a, tt.b, result, tt.b, tt.a, resultReverse)
			}
		})
	}
}

func BenchmarkLevenshteinDistance_Short(b *testing.B) {
	for i := 0; i < b.N; i++ {
		LevenshteinDistance("attachment", "atachment")
	}
}

func BenchmarkLevenshteinDistance_Long(bench *testing.B) {
	strA := "you have a right to perform your prescribed duty"
	strB := "you hvae a rigth to preform your prescirbed dtuy"
	for i := 0; i < bench.N; i++ {
		LevenshteinDistance(strA, strB)
	}
}
