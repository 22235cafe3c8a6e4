package models

import (
	"testing"
)

func TestGuidanceQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *GuidanceQuery
		wantErr bool
		wantMax int
	}{
		{"empty query", &GuidanceQuery{Query: ""}, true, 0},
		{"whitespace query", &GuidanceQuery{Query: "   \t\n"}, true, 0},
		{"valid query", &GuidanceQuery{Query: "peace"}, false, 5},
		{"keeps explicit max", &GuidanceQuery{Query: "x", MaxResults: 3}, false, 3},
		{"caps max at ceiling", &GuidanceQuery{Query: "x", MaxResults: 200}, false, 50},
		{"negative max uses default", &GuidanceQuery{Query: "x", MaxResults: -1}, false, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 50)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.MaxResults != tt.wantMax {
				t.Errorf("MaxResults = %d, want %d", tt.query.MaxResults, tt.wantMax)
			}
		})
	}
}

func TestGuidanceQuery_ValidateTrims(t *testing.T) {
	q := &GuidanceQuery{Query: "  inner peace  "}
	if err := q.Validate(5, 50); err != nil {
		t.Fatal(err)
	}
	if q.Query != "inner peace" {
		t.Errorf("Query = %q, want trimmed", q.Query)
	}
}
