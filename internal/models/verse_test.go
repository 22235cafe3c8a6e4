package models

import "testing"

func TestVerse_Reference(t *testing.T) {
	tests := []struct {
		name  string
		verse Verse
		want  string
	}{
		{"numeric", Verse{Chapter: 2, Verse: 47}, "2.47"},
		{"merged range", Verse{Chapter: 1, Verse: 16, Label: "16-18"}, "1.16-18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verse.Reference(); got != tt.want {
				t.Errorf("Reference() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		verse   Verse
		wantErr bool
	}{
		{"valid", Verse{Chapter: 2, Verse: 47, Translation: "t"}, false},
		{"chapter zero", Verse{Chapter: 0, Verse: 1, Translation: "t"}, true},
		{"chapter 19", Verse{Chapter: 19, Verse: 1, Translation: "t"}, true},
		{"verse zero", Verse{Chapter: 1, Verse: 0, Translation: "t"}, true},
		{"missing translation", Verse{Chapter: 1, Verse: 1, Translation: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.verse.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLess(t *testing.T) {
	a := &Verse{Chapter: 1, Verse: 16, Label: "16-18"}
	b := &Verse{Chapter: 1, Verse: 19}
	c := &Verse{Chapter: 2, Verse: 1}
	if !Less(a, b) || !Less(b, c) || !Less(a, c) {
		t.Error("expected 1.16-18 < 1.19 < 2.1")
	}
	if Less(c, a) {
		t.Error("2.1 should not sort before 1.16-18")
	}
}

func TestParseVerseLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    int
		wantErr bool
	}{
		{"47", 47, false},
		{"16-18", 16, false},
		{" 4 ", 4, false},
		{"abc", 0, true},
		{"0", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseVerseLabel(tt.label)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVerseLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVerseLabel(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestParseReference(t *testing.T) {
	ch, label, err := ParseReference("1.16-18")
	if err != nil {
		t.Fatal(err)
	}
	if ch != 1 || label != "16-18" {
		t.Errorf("got %d %q", ch, label)
	}
	if _, _, err := ParseReference("2"); err == nil {
		t.Error("expected error for missing verse")
	}
	if _, _, err := ParseReference("x.1"); err == nil {
		t.Error("expected error for bad chapter")
	}
}

func TestVerse_Covers(t *testing.T) {
	merged := &Verse{Chapter: 1, Verse: 16, Label: "16-18"}
	single := &Verse{Chapter: 2, Verse: 47}
	tests := []struct {
		v    *Verse
		n    int
		want bool
	}{
		{merged, 16, true},
		{merged, 17, true},
		{merged, 18, true},
		{merged, 15, false},
		{merged, 19, false},
		{single, 47, true},
		{single, 48, false},
		{&Verse{Chapter: 1, Verse: 4, Label: "4-x"}, 5, false},
	}
	for _, tt := range tests {
		if got := tt.v.Covers(tt.n); got != tt.want {
			t.Errorf("%s.Covers(%d) = %v, want %v", tt.v.Reference(), tt.n, got, tt.want)
		}
	}
}
