package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/keyword"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// ReloadStatus describes the last reload attempt.
type ReloadStatus struct {
	At        time.Time `json:"at"`
	Verses    int       `json:"verses"`
	Chapters  int       `json:"chapters"`
	Unchanged bool      `json:"unchanged"`
	Error     string    `json:"error,omitempty"`
}

// Reloader re-ingests verse sources and swaps a fresh snapshot into the retriever.
// A failed reload leaves the previous snapshot in place.
type Reloader struct {
	ingester  *ingest.Ingester // nil: reload from the store only
	sources   []string
	store     retrieval.VerseStore
	retriever *retrieval.Retriever
	suggester *keyword.Suggester
	// vocabulary rebuilds the suggester dictionary from each snapshot; used when
	// no keyword index backs the suggester.
	vocabulary bool
	logger     *zap.Logger

	mu       sync.Mutex // serializes reloads
	statusMu sync.RWMutex
	status   ReloadStatus
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithIngest re-runs in over sources before every reload.
func WithIngest(in *ingest.Ingester, sources []string) ReloaderOption {
	return func(r *Reloader) {
		r.ingester = in
		r.sources = sources
	}
}

// WithSuggester refreshes s after every reload. When vocabulary is true the
// dictionary is rebuilt from the new snapshot.
func WithSuggester(s *keyword.Suggester, vocabulary bool) ReloaderOption {
	return func(r *Reloader) {
		r.suggester = s
		r.vocabulary = vocabulary
	}
}

// WithReloadLogger sets the logger.
func WithReloadLogger(l *zap.Logger) ReloaderOption {
	return func(r *Reloader) { r.logger = l }
}

// NewReloader creates a reloader reading verses from store into retriever.
func NewReloader(store retrieval.VerseStore, retriever *retrieval.Retriever, opts ...ReloaderOption) *Reloader {
	r := &Reloader{store: store, retriever: retriever}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Reload ingests the sources (when configured), builds a snapshot from the store and
// installs it. The ingest step is skipped for sources unchanged since the last run,
// but the snapshot is always rebuilt.
func (r *Reloader) Reload(ctx context.Context) (*ReloadStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := ReloadStatus{At: time.Now()}
	if r.ingester != nil && len(r.sources) > 0 {
		report, err := r.ingester.Run(ctx, r.sources)
		if err != nil {
			return r.fail(st, fmt.Errorf("ingest failed: %w", err))
		}
		st.Unchanged = report.Unchanged
	}

	snap, err := retrieval.LoadSnapshot(ctx, r.store)
	if err != nil {
		return r.fail(st, err)
	}
	r.retriever.Swap(snap)
	st.Verses = snap.Len()
	st.Chapters = len(snap.Chapters())

	if r.suggester != nil {
		var serr error
		if r.vocabulary {
			verses, _ := snap.AllVerses(ctx)
			serr = r.suggester.Reset(keyword.NewVocabulary(verses, retrieval.Tokenize))
		} else {
			serr = r.suggester.Refresh()
		}
		if serr != nil {
			r.logger.Warn("failed to refresh keyword suggestions", zap.Error(serr))
		}
	}

	r.setStatus(st)
	r.logger.Info("verse snapshot loaded",
		zap.Int("verses", st.Verses),
		zap.Int("chapters", st.Chapters),
		zap.Bool("unchanged", st.Unchanged),
	)
	return &st, nil
}

func (r *Reloader) fail(st ReloadStatus, err error) (*ReloadStatus, error) {
	st.Error = err.Error()
	if prev := r.retriever.Snapshot(); prev != nil {
		st.Verses = prev.Len()
		st.Chapters = len(prev.Chapters())
	}
	r.setStatus(st)
	r.logger.Error("verse reload failed", zap.Error(err))
	return &st, err
}

// OnSourcesChanged is the watcher callback.
func (r *Reloader) OnSourcesChanged(paths []string) {
	r.logger.Debug("reloading after source change", zap.Strings("paths", paths))
	_, _ = r.Reload(context.Background())
}

func (r *Reloader) setStatus(st ReloadStatus) {
	r.statusMu.Lock()
	r.status = st
	r.statusMu.Unlock()
}

// Status returns the last reload attempt, or the zero value before the first.
func (r *Reloader) Status() ReloadStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}
