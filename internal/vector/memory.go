package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrUnknownReference is returned by Related when the reference has no vector.
var ErrUnknownReference = errors.New("no vector for reference")

// MemoryIndex is an in-memory vector index using brute-force inner product search.
// A few hundred verses make exhaustive search the right tool.
type MemoryIndex struct {
	dimensions int
	refs       []string
	vectors    [][]float32
	pos        map[string]int
	mu         sync.RWMutex
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		pos:        make(map[string]int),
	}, nil
}

// Upsert stores normalized copies of vectors, replacing any existing vector for a reference.
func (m *MemoryIndex) Upsert(ctx context.Context, refs []string, vectors [][]float32) error {
	if len(refs) != len(vectors) {
		return fmt.Errorf("refs and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", refs[i], len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ref := range refs {
		vec := Normalize(vectors[i])
		if p, ok := m.pos[ref]; ok {
			m.vectors[p] = vec
			continue
		}
		m.pos[ref] = len(m.refs)
		m.refs = append(m.refs, ref)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k references by cosine similarity to query. Ties break by reference.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.search(Normalize(query), k, ""), nil
}

// Related returns the k verses nearest to ref, excluding ref itself.
func (m *MemoryIndex) Related(ctx context.Context, ref string, k int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pos[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrUnknownReference)
	}
	return m.search(m.vectors[p], k, ref), nil
}

func (m *MemoryIndex) search(query []float32, k int, exclude string) []Neighbor {
	if k <= 0 || len(m.refs) == 0 {
		return nil
	}
	scores := make([]Neighbor, 0, len(m.refs))
	for i, vec := range m.vectors {
		if m.refs[i] == exclude {
			continue
		}
		scores = append(scores, Neighbor{Reference: m.refs[i], Score: InnerProduct(query, vec)})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Reference < scores[j].Reference
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

// Remove deletes vectors by reference.
func (m *MemoryIndex) Remove(ctx context.Context, refs []string) error {
	removeSet := make(map[string]bool, len(refs))
	for _, ref := range refs {
		removeSet[ref] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newRefs := make([]string, 0, len(m.refs))
	newVectors := make([][]float32, 0, len(m.vectors))
	m.pos = make(map[string]int, len(m.refs))
	for i, ref := range m.refs {
		if removeSet[ref] {
			continue
		}
		m.pos[ref] = len(newRefs)
		newRefs = append(newRefs, ref)
		newVectors = append(newVectors, m.vectors[i])
	}
	m.refs = newRefs
	m.vectors = newVectors
	return nil
}

// Save persists the index to path. Directory is created if needed. Format: dimension (4), n (4),
// then per vector: refLen (4), ref bytes, vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.refs))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, ref := range m.refs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ref))); err != nil {
			return fmt.Errorf("write ref len: %w", err)
		}
		if _, err := w.WriteString(ref); err != nil {
			return fmt.Errorf("write ref: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return f.Sync()
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	refs := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	pos := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var refLen uint32
		if err := binary.Read(r, binary.LittleEndian, &refLen); err != nil {
			return fmt.Errorf("read ref len: %w", err)
		}
		refBytes := make([]byte, refLen)
		if _, err := io.ReadFull(r, refBytes); err != nil {
			return fmt.Errorf("read ref: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ref := string(refBytes)
		pos[ref] = len(refs)
		refs = append(refs, ref)
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	m.mu.Lock()
	m.refs, m.vectors, m.pos = refs, vectors, pos
	m.mu.Unlock()
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.refs)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}
