package retrieval

import (
	"reflect"
	"testing"
)

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"stop words removed", "How can I find inner peace?", []string{"find", "inner", "peace"}},
		{"only stop words", "what is the how to", []string{}},
		{"whitespace", "   ", []string{}},
		{"short tokens dropped", "ok go?!", []string{}},
		{"duplicates keep first position", "peace anger peace Anger", []string{"peace", "anger"}},
		{"punctuation separates", "duty,action;karma-yoga", []string{"duty", "action", "karma", "yoga"}},
		{"cap at five", "alpha beta gamma delta epsilon zeta eta", []string{"alpha", "beta", "gamma", "delta", "epsilon"}},
		{"gita question", "What does the Gita say about karma?", []string{"gita", "karma"}},
		{"digits kept", "chapter 12 verse 100", []string{"chapter", "verse", "100"}},
		{"unicode punctuation", "fear—anger…“desire”", []string{"fear", "anger", "desire"}},
		{"non ascii letters separate", "dharma धर्म café", []string{"dharma", "caf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.query)
			if got == nil {
				t.Fatal("Extract returned nil")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestExtractor_CustomConfig(t *testing.T) {
	e := NewExtractor(ExtractorConfig{StopWords: []string{"Peace"}, MaxKeywords: 2, MinTokenLength: 5})
	got := e.Extract("inner peace and lasting happiness forever")
	want := []string{"inner", "lasting"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if e.MaxKeywords() != 2 {
		t.Errorf("MaxKeywords = %d", e.MaxKeywords())
	}
}

func TestExtractor_ZeroConfigUsesDefaults(t *testing.T) {
	e := NewExtractor(ExtractorConfig{})
	if e.MaxKeywords() != DefaultMaxKeywords {
		t.Errorf("MaxKeywords = %d, want %d", e.MaxKeywords(), DefaultMaxKeywords)
	}
	got := e.Extract("is it ok")
	if !reflect.DeepEqual(got, []string{}) {
		t.Errorf("tokens of length <= 2 should be dropped, got %v", got)
	}
}

func TestExtractKeywords_Deterministic(t *testing.T) {
	q := "Why do I feel anger and fear at work?"
	first := ExtractKeywords(q)
	for i := 0; i < 10; i++ {
		if got := ExtractKeywords(q); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %v, want %v", i, got, first)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello, WORLD! 2.47")
	want := []string{"hello", "world", "2", "47"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}
