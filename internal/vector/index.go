// Package vector provides the offline verse-similarity index used by the admin
// "related" command. Retrieval never consults it.
package vector

import "context"

// Index stores one vector per verse reference and answers nearest-neighbour queries.
type Index interface {
	Upsert(ctx context.Context, refs []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Related(ctx context.Context, ref string, k int) ([]Neighbor, error)
	Remove(ctx context.Context, refs []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
}

// Neighbor is a single similarity hit.
type Neighbor struct {
	Reference string  `json:"reference"`
	Score     float64 `json:"score"` // cosine similarity, vectors are normalized on insert
}
