package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/gitaguide/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS verses (
		chapter INTEGER NOT NULL,
		label TEXT NOT NULL,
		verse INTEGER NOT NULL,
		sanskrit TEXT NOT NULL DEFAULT '',
		transliteration TEXT NOT NULL DEFAULT '',
		word_meanings TEXT NOT NULL DEFAULT '',
		translation TEXT NOT NULL,
		commentary TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chapter, label)
	);

	CREATE INDEX IF NOT EXISTS idx_verses_order ON verses(chapter, verse);

	CREATE TABLE IF NOT EXISTS verse_embeddings (
		reference TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reflections (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reflections_created_at ON reflections(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const verseColumns = `chapter, verse, label, sanskrit, transliteration, word_meanings, translation, commentary`

// verseLabelKey is the stored label: the explicit label, or the numeric verse.
func verseLabelKey(v *models.Verse) string {
	return v.VerseLabel()
}

// UpsertVerses inserts or replaces verses in a transaction.
func (s *SQLiteStorage) UpsertVerses(ctx context.Context, verses []*models.Verse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := upsertVerses(ctx, tx, verses); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceVerses makes verses the whole corpus: verses not in the set are deleted and
// the rest upserted, atomically.
func (s *SQLiteStorage) ReplaceVerses(ctx context.Context, verses []*models.Verse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM verses`); err != nil {
		return fmt.Errorf("failed to clear verses: %w", err)
	}
	if err := upsertVerses(ctx, tx, verses); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertVerses(ctx context.Context, tx *sql.Tx, verses []*models.Verse) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verses (chapter, label, verse, sanskrit, transliteration, word_meanings, translation, commentary, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chapter, label) DO UPDATE SET
		   verse = excluded.verse,
		   sanskrit = excluded.sanskrit,
		   transliteration = excluded.transliteration,
		   word_meanings = excluded.word_meanings,
		   translation = excluded.translation,
		   commentary = excluded.commentary,
		   updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, v := range verses {
		if _, err := stmt.ExecContext(ctx, v.Chapter, verseLabelKey(v), v.Verse, v.Sanskrit,
			v.Transliteration, v.WordMeanings, v.Translation, v.Commentary, now); err != nil {
			return fmt.Errorf("failed to upsert verse %s: %w", v.Reference(), err)
		}
	}
	return nil
}

// AllVerses returns every verse ordered by chapter then verse.
func (s *SQLiteStorage) AllVerses(ctx context.Context) ([]*models.Verse, error) {
	return s.queryVerses(ctx,
		`SELECT `+verseColumns+` FROM verses ORDER BY chapter, verse, label`)
}

// ChapterVerses returns the verses of one chapter in order.
func (s *SQLiteStorage) ChapterVerses(ctx context.Context, chapter int) ([]*models.Verse, error) {
	return s.queryVerses(ctx,
		`SELECT `+verseColumns+` FROM verses WHERE chapter = ? ORDER BY verse, label`, chapter)
}

// GetVerse returns a verse by chapter and label ("47" or "16-18").
// A plain number also finds the merged range containing it.
func (s *SQLiteStorage) GetVerse(ctx context.Context, chapter int, label string) (*models.Verse, error) {
	verses, err := s.queryVerses(ctx,
		`SELECT `+verseColumns+` FROM verses WHERE chapter = ? AND label = ?`, chapter, label)
	if err != nil {
		return nil, err
	}
	if len(verses) > 0 {
		return verses[0], nil
	}
	if n, perr := models.ParseVerseLabel(label); perr == nil {
		// the closest verse starting at or before n may be a merged range holding it
		verses, err = s.queryVerses(ctx,
			`SELECT `+verseColumns+` FROM verses WHERE chapter = ? AND verse <= ? ORDER BY verse DESC, label LIMIT 1`, chapter, n)
		if err != nil {
			return nil, err
		}
		if len(verses) > 0 && verses[0].Covers(n) {
			return verses[0], nil
		}
	}
	return nil, fmt.Errorf("verse %d.%s: %w", chapter, label, ErrNotFound)
}

func (s *SQLiteStorage) queryVerses(ctx context.Context, query string, args ...interface{}) ([]*models.Verse, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verses []*models.Verse
	for rows.Next() {
		var v models.Verse
		if err := rows.Scan(&v.Chapter, &v.Verse, &v.Label, &v.Sanskrit, &v.Transliteration,
			&v.WordMeanings, &v.Translation, &v.Commentary); err != nil {
			return nil, err
		}
		// plain numeric labels are implied by Verse
		if v.Label == fmt.Sprint(v.Verse) {
			v.Label = ""
		}
		verses = append(verses, &v)
	}
	return verses, rows.Err()
}

// CountVerses returns the total number of verses.
func (s *SQLiteStorage) CountVerses(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses`).Scan(&count)
	return count, err
}

// SaveEmbedding stores or replaces the embedding of a verse.
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, ref, model string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verse_embeddings (reference, model, dimensions, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(reference) DO UPDATE SET
		   model = excluded.model,
		   dimensions = excluded.dimensions,
		   vector = excluded.vector,
		   created_at = excluded.created_at`,
		ref, model, len(vec), encodeVector(vec), time.Now(),
	)
	return err
}

// AllEmbeddings returns every stored embedding keyed by verse reference.
func (s *SQLiteStorage) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT reference, vector FROM verse_embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var ref string
		var blob []byte
		if err := rows.Scan(&ref, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("embedding %s: %w", ref, err)
		}
		out[ref] = vec
	}
	return out, rows.Err()
}

// CountEmbeddings returns the number of stored embeddings.
func (s *SQLiteStorage) CountEmbeddings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verse_embeddings`).Scan(&count)
	return count, err
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

// CreateReflection stores a new reflection with a generated ID.
func (s *SQLiteStorage) CreateReflection(ctx context.Context, in *models.ReflectionInput) (*models.Reflection, error) {
	r := &models.Reflection{
		ID:        uuid.New().String(),
		Reference: in.Reference,
		Question:  in.Question,
		Text:      in.Text,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reflections (id, reference, question, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Reference, r.Question, r.Text, r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetReflection returns a reflection by ID.
func (s *SQLiteStorage) GetReflection(ctx context.Context, id string) (*models.Reflection, error) {
	var r models.Reflection
	err := s.db.QueryRowContext(ctx,
		`SELECT id, reference, question, text, created_at FROM reflections WHERE id = ?`, id,
	).Scan(&r.ID, &r.Reference, &r.Question, &r.Text, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reflection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReflections returns reflections newest first.
func (s *SQLiteStorage) ListReflections(ctx context.Context, offset, limit int) ([]*models.Reflection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference, question, text, created_at
		 FROM reflections ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reflections := []*models.Reflection{}
	for rows.Next() {
		var r models.Reflection
		if err := rows.Scan(&r.ID, &r.Reference, &r.Question, &r.Text, &r.CreatedAt); err != nil {
			return nil, err
		}
		reflections = append(reflections, &r)
	}
	return reflections, rows.Err()
}

// DeleteReflection removes a reflection by ID.
func (s *SQLiteStorage) DeleteReflection(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reflections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("reflection %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountReflections returns the total number of reflections.
func (s *SQLiteStorage) CountReflections(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reflections`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
