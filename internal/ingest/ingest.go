// Package ingest loads verse sources (JSON files and HTML pages), validates the corpus
// and writes it to storage and the keyword index.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// DefaultExtensions are the source file types ingest understands.
var DefaultExtensions = []string{".json", ".html", ".htm"}

// VerseWriter persists the corpus, replacing whatever was stored before.
type VerseWriter interface {
	ReplaceVerses(ctx context.Context, verses []*models.Verse) error
}

// VerseIndexer makes a keyword index hold exactly the given corpus.
type VerseIndexer interface {
	ReplaceVerses(ctx context.Context, verses []*models.Verse) error
}

// Report summarizes one ingest run.
type Report struct {
	Sources   int           `json:"sources"`
	Verses    int           `json:"verses"`
	Chapters  int           `json:"chapters"`
	Unchanged bool          `json:"unchanged"`
	Duration  time.Duration `json:"duration"`
}

// Ingester loads and stores verse sources.
type Ingester struct {
	store       VerseWriter
	index       VerseIndexer // optional
	selectors   Selectors
	concurrency int
	logger      *zap.Logger

	mu           sync.Mutex
	fingerprints map[string]string // source path -> content hash of the last stored run
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for per-source debug output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// WithKeywordIndex also writes verses to idx.
func WithKeywordIndex(idx VerseIndexer) Option {
	return func(in *Ingester) { in.index = idx }
}

// WithSelectors sets the HTML selectors.
func WithSelectors(s Selectors) Option {
	return func(in *Ingester) { in.selectors = s }
}

// WithConcurrency bounds how many sources are parsed at once.
func WithConcurrency(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// NewIngester creates an ingester writing to store.
func NewIngester(store VerseWriter, opts ...Option) *Ingester {
	in := &Ingester{
		store:        store,
		selectors:    DefaultSelectors(),
		concurrency:  4,
		fingerprints: make(map[string]string),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = utils.OrNop(in.logger)
	return in
}

type source struct {
	path string
	hash string
}

// Load expands paths (files or directories), parses every source concurrently and
// returns the validated corpus in (chapter, verse) order.
func (in *Ingester) Load(ctx context.Context, paths []string) ([]*models.Verse, error) {
	verses, _, err := in.load(ctx, paths)
	return verses, err
}

func (in *Ingester) load(ctx context.Context, paths []string) ([]*models.Verse, []source, error) {
	files, err := ExpandSources(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no verse sources found in %s", strings.Join(paths, ", "))
	}

	sources := make([]source, len(files))
	parsed := make([][]*models.Verse, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			verses, err := in.parse(path, data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			sum := sha256.Sum256(data)
			sources[i] = source{path: path, hash: hex.EncodeToString(sum[:])}
			parsed[i] = verses
			in.logger.Debug("ingest parsed source", zap.String("path", path), zap.Int("verses", len(verses)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []*models.Verse
	for _, vs := range parsed {
		all = append(all, vs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return models.Less(all[i], all[j]) })
	if err := Validate(all); err != nil {
		return nil, nil, err
	}
	return all, sources, nil
}

func (in *Ingester) parse(path string, data []byte) ([]*models.Verse, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".html", ".htm":
		return ParseHTML(strings.NewReader(string(data)), in.selectors)
	default:
		return nil, fmt.Errorf("unsupported source type %q", filepath.Ext(path))
	}
}

// Run loads paths and writes the corpus to storage and, when configured, the keyword
// index. When every source is byte-identical to the previous run nothing is written
// and the report is marked Unchanged.
func (in *Ingester) Run(ctx context.Context, paths []string) (*Report, error) {
	start := time.Now()
	verses, sources, err := in.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Sources:  len(sources),
		Verses:   len(verses),
		Chapters: verses[len(verses)-1].Chapter,
	}

	if in.unchanged(sources) {
		report.Unchanged = true
		report.Duration = time.Since(start)
		in.logger.Debug("ingest sources unchanged", zap.Int("sources", len(sources)))
		return report, nil
	}

	if err := in.store.ReplaceVerses(ctx, verses); err != nil {
		return nil, fmt.Errorf("failed to store verses: %w", err)
	}
	if in.index != nil {
		if err := in.index.ReplaceVerses(ctx, verses); err != nil {
			return nil, fmt.Errorf("failed to index verses: %w", err)
		}
	}
	in.remember(sources)
	report.Duration = time.Since(start)
	in.logger.Info("ingest complete",
		zap.Int("sources", report.Sources),
		zap.Int("verses", report.Verses),
		zap.Int("chapters", report.Chapters),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (in *Ingester) unchanged(sources []source) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.fingerprints) != len(sources) {
		return false
	}
	for _, s := range sources {
		if in.fingerprints[s.path] != s.hash {
			return false
		}
	}
	return true
}

func (in *Ingester) remember(sources []source) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.fingerprints = make(map[string]string, len(sources))
	for _, s := range sources {
		in.fingerprints[s.path] = s.hash
	}
}

// ExpandSources resolves files and directories into a sorted list of source files with
// a supported extension. Directories are walked recursively.
func ExpandSources(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat source: %w", err)
		}
		if !info.IsDir() {
			if !IsSourceFile(abs) {
				return nil, fmt.Errorf("unsupported source type %q", filepath.Ext(abs))
			}
			add(abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !IsSourceFile(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsSourceFile reports whether path has a supported source extension.
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range DefaultExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Validate checks every verse, rejects duplicate references and requires the chapters
// present to run contiguously from 1. All problems are reported together.
func Validate(verses []*models.Verse) error {
	if len(verses) == 0 {
		return fmt.Errorf("corpus is empty")
	}
	var errs []error
	seen := make(map[string]struct{}, len(verses))
	chapters := make(map[int]struct{})
	maxChapter := 0
	for _, v := range verses {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		ref := v.Reference()
		if _, dup := seen[ref]; dup {
			errs = append(errs, fmt.Errorf("duplicate verse %s", ref))
		}
		seen[ref] = struct{}{}
		chapters[v.Chapter] = struct{}{}
		if v.Chapter > maxChapter {
			maxChapter = v.Chapter
		}
	}
	for c := models.MinChapter; c <= maxChapter; c++ {
		if _, ok := chapters[c]; !ok {
			errs = append(errs, fmt.Errorf("chapter %d is missing (chapters must run from %d to %d)", c, models.MinChapter, maxChapter))
		}
	}
	return errors.Join(errs...)
}
