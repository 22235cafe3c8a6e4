// Package storage persists verses, verse embeddings and user reflections.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/gitaguide/internal/models"
)

// ErrNotFound is returned when a verse or reflection does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines verse, embedding and reflection persistence operations.
type Storage interface {
	// Verse operations
	UpsertVerses(ctx context.Context, verses []*models.Verse) error
	ReplaceVerses(ctx context.Context, verses []*models.Verse) error
	AllVerses(ctx context.Context) ([]*models.Verse, error)
	GetVerse(ctx context.Context, chapter int, label string) (*models.Verse, error)
	ChapterVerses(ctx context.Context, chapter int) ([]*models.Verse, error)
	CountVerses(ctx context.Context) (int64, error)

	// Embedding operations
	SaveEmbedding(ctx context.Context, ref, model string, vec []float32) error
	AllEmbeddings(ctx context.Context) (map[string][]float32, error)
	CountEmbeddings(ctx context.Context) (int64, error)

	// Reflection operations
	CreateReflection(ctx context.Context, in *models.ReflectionInput) (*models.Reflection, error)
	GetReflection(ctx context.Context, id string) (*models.Reflection, error)
	ListReflections(ctx context.Context, offset, limit int) ([]*models.Reflection, error)
	DeleteReflection(ctx context.Context, id string) error
	CountReflections(ctx context.Context) (int64, error)

	Close() error
}
