package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/config"
	"github.com/hyperjump/gitaguide/internal/embedding"
	"github.com/hyperjump/gitaguide/internal/guidance"
	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/keyword"
	"github.com/hyperjump/gitaguide/internal/llm"
	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/internal/server"
	"github.com/hyperjump/gitaguide/internal/storage"
	"github.com/hyperjump/gitaguide/internal/vector"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// embedBatchSize is the number of verses sent to the embedder per request.
const embedBatchSize = 32

// Components holds initialized services.
type Components struct {
	Config    *config.Config
	Storage   storage.Storage
	Index     *keyword.VerseIndex
	Retriever *retrieval.Retriever
	Suggester *keyword.Suggester
	Composer  *guidance.Composer
	Ingester  *ingest.Ingester
	Reloader  *server.Reloader
}

type componentOptions struct {
	ingest    bool // re-ingest the configured sources on every reload
	generator bool
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts componentOptions) (*Components, error) {
	logger = utils.OrNop(logger)
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Config: cfg, Storage: store}

	if p := cfg.Storage.BleveIndexPath; p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	index, err := keyword.NewVerseIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Index = index

	var matcher retrieval.Matcher = retrieval.NewScanMatcher()
	if cfg.Retrieval.Matcher == "indexed" {
		matcher = retrieval.NewIndexedMatcher(index)
	}
	c.Retriever = retrieval.NewRetriever(nil,
		retrieval.NewExtractor(cfg.ExtractorConfig()),
		retrieval.WithLimits(cfg.Limits()),
		retrieval.WithMatcher(matcher),
	)
	c.Suggester = keyword.NewSuggester(index)
	c.Ingester = ingest.NewIngester(store,
		ingest.WithLogger(logger),
		ingest.WithKeywordIndex(index),
		ingest.WithSelectors(cfg.Ingest.HTML),
		ingest.WithConcurrency(cfg.Ingest.Concurrency),
	)

	var gen guidance.Generator
	if opts.generator {
		g, err := llm.New(ctx, cfg.LLMOptions())
		if err != nil {
			logger.Warn("guidance generator unavailable, only verse search will work", zap.Error(err))
		} else {
			gen = g
		}
	}
	c.Composer = guidance.NewComposer(c.Retriever, gen,
		guidance.WithSuggester(c.Suggester),
		guidance.WithCommentaryMax(cfg.LLM.CommentaryMaxChars),
		guidance.WithLogger(logger),
	)

	reloadOpts := []server.ReloaderOption{
		server.WithSuggester(c.Suggester, false),
		server.WithReloadLogger(logger),
	}
	if opts.ingest && len(cfg.Ingest.Sources) > 0 {
		reloadOpts = append(reloadOpts, server.WithIngest(c.Ingester, cfg.Ingest.Sources))
	}
	c.Reloader = server.NewReloader(store, c.Retriever, reloadOpts...)
	return c, nil
}

// Load installs the first snapshot. The keyword index is rebuilt from the snapshot
// when its document count disagrees, e.g. after the index directory was removed.
func (c *Components) Load(ctx context.Context) (*server.ReloadStatus, error) {
	st, err := c.Reloader.Reload(ctx)
	if err != nil {
		return st, err
	}
	snap := c.Retriever.Snapshot()
	n, err := c.Index.DocCount()
	if err != nil {
		return st, fmt.Errorf("keyword index: %w", err)
	}
	if int(n) == snap.Len() {
		return st, nil
	}
	verses, err := snap.AllVerses(ctx)
	if err != nil {
		return st, err
	}
	if err := c.Index.ReplaceVerses(ctx, verses); err != nil {
		return st, fmt.Errorf("rebuild keyword index: %w", err)
	}
	if err := c.Suggester.Refresh(); err != nil {
		return st, fmt.Errorf("refresh suggester: %w", err)
	}
	return st, nil
}

func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// embedVerses embeds every stored verse, persists the vectors and adds them to idx.
// Returns the number of verses embedded.
func embedVerses(ctx context.Context, store storage.Storage, embedder embedding.Embedder, idx vector.Index) (int, error) {
	verses, err := store.AllVerses(ctx)
	if err != nil {
		return 0, err
	}
	if len(verses) == 0 {
		return 0, fmt.Errorf("no verses stored: %w", retrieval.ErrStoreUnavailable)
	}
	for start := 0; start < len(verses); start += embedBatchSize {
		end := min(start+embedBatchSize, len(verses))
		batch := verses[start:end]
		texts := make([]string, len(batch))
		refs := make([]string, len(batch))
		for i, v := range batch {
			texts[i] = v.Translation + " " + v.Commentary
			refs[i] = v.Reference()
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return start, fmt.Errorf("embed verses %s..%s: %w", refs[0], refs[len(refs)-1], err)
		}
		for i, ref := range refs {
			if err := store.SaveEmbedding(ctx, ref, embedder.Name(), vecs[i]); err != nil {
				return start, fmt.Errorf("save embedding %s: %w", ref, err)
			}
		}
		if err := idx.Upsert(ctx, refs, vecs); err != nil {
			return start, err
		}
	}
	return len(verses), nil
}

// loadVectorIndex opens the saved vector index at path, rebuilding it from the stored
// embeddings when the file is missing or stale.
func loadVectorIndex(ctx context.Context, store storage.Storage, path string) (*vector.MemoryIndex, error) {
	embeddings, err := store.AllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, errors.New("no verse embeddings stored; run \"gitaguide embed\" first")
	}
	refs := make([]string, 0, len(embeddings))
	for ref := range embeddings {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	idx, err := vector.NewMemoryIndex(len(embeddings[refs[0]]))
	if err != nil {
		return nil, err
	}
	if err := idx.Load(path); err == nil && idx.Size() == len(embeddings) {
		return idx, nil
	}
	vecs := make([][]float32, len(refs))
	for i, ref := range refs {
		vecs[i] = embeddings[ref]
	}
	if err := idx.Upsert(ctx, refs, vecs); err != nil {
		return nil, err
	}
	return idx, nil
}

// versesByReference looks up the verses named by neighbors for display.
func versesByReference(ctx context.Context, store storage.Storage, neighbors []vector.Neighbor) map[string]*models.Verse {
	out := make(map[string]*models.Verse, len(neighbors))
	for _, n := range neighbors {
		chapter, label, err := models.ParseReference(n.Reference)
		if err != nil {
			continue
		}
		if v, err := store.GetVerse(ctx, chapter, label); err == nil {
			out[n.Reference] = v
		}
	}
	return out
}
