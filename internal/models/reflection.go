package models

import "time"

// Reflection is a note a user keeps about a verse or a guidance answer.
type Reflection struct {
	ID        string    `json:"id" db:"id"`
	Reference string    `json:"reference,omitempty" db:"reference"`
	Question  string    `json:"question,omitempty" db:"question"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReflectionInput is the input for creating a reflection.
type ReflectionInput struct {
	Reference string `json:"reference,omitempty"`
	Question  string `json:"question,omitempty"`
	Text      string `json:"text"`
}
