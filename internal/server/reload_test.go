package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/guidance"
	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/keyword"
	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/internal/storage"
)

const twoChapters = `[
  {"chapter": 1, "verse": 1, "translation": "Dhritarashtra said: what did my sons do on the field of dharma?"},
  {"chapter": 2, "verse": 47, "translation": "You have a right to your duty, never to the fruits of action."},
  {"chapter": 2, "verse": 48, "translation": "Perform your duty with equanimity, abandoning attachment."}
]`

const oneChapter = `[
  {"chapter": 1, "verse": 1, "translation": "Dhritarashtra said: what did my sons do on the field of dharma?"}
]`

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newReloadFixture(t *testing.T) (*Reloader, *retrieval.Retriever, *keyword.Suggester, string) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	source := filepath.Join(t.TempDir(), "gita.json")
	writeSource(t, source, twoChapters)

	retriever := retrieval.NewRetriever(nil, nil)
	suggester := keyword.NewSuggester(keyword.NewVocabulary(nil, retrieval.Tokenize))
	r := NewReloader(store, retriever,
		WithIngest(ingest.NewIngester(store), []string{source}),
		WithSuggester(suggester, true),
		WithReloadLogger(zap.NewNop()),
	)
	return r, retriever, suggester, source
}

func TestReloader_Reload(t *testing.T) {
	r, retriever, suggester, source := newReloadFixture(t)
	ctx := context.Background()

	if got := r.Status(); !got.At.IsZero() {
		t.Errorf("status before first reload = %+v", got)
	}

	st, err := r.Reload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Verses != 3 || st.Chapters != 2 || st.Unchanged {
		t.Errorf("first reload = %+v", st)
	}
	if retriever.Snapshot().Len() != 3 {
		t.Errorf("snapshot len = %d", retriever.Snapshot().Len())
	}
	if got := suggester.Suggest("equanimty"); len(got) == 0 || got[0].Term != "equanimity" {
		t.Errorf("suggester not rebuilt from snapshot: %+v", got)
	}

	// unchanged sources skip the write but still rebuild the snapshot
	st, err = r.Reload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Unchanged || st.Verses != 3 {
		t.Errorf("second reload = %+v", st)
	}

	// removed verses disappear from the snapshot
	writeSource(t, source, oneChapter)
	st, err = r.Reload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Verses != 1 || retriever.Snapshot().Len() != 1 {
		t.Errorf("after shrink: status %+v, snapshot %d", st, retriever.Snapshot().Len())
	}
	if _, ok := retriever.Snapshot().Lookup("2.47"); ok {
		t.Error("2.47 should be gone after re-ingest")
	}
}

func TestReloader_FailureKeepsSnapshot(t *testing.T) {
	r, retriever, _, source := newReloadFixture(t)
	ctx := context.Background()
	if _, err := r.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	before := retriever.Snapshot()

	// chapter 2 without chapter 1 fails validation
	writeSource(t, source, `[{"chapter": 2, "verse": 1, "translation": "Sanjaya said."}]`)
	st, err := r.Reload(ctx)
	if err == nil {
		t.Fatal("expected reload error")
	}
	if st.Error == "" || st.Verses != 3 {
		t.Errorf("failed status = %+v", st)
	}
	if retriever.Snapshot() != before {
		t.Error("snapshot must be kept after a failed reload")
	}
	if got := r.Status(); got.Error == "" {
		t.Errorf("Status() should report the failure: %+v", got)
	}

	res, err := retriever.RetrieveVerses(ctx, "fruits of action", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Reference != "2.47" {
		t.Errorf("retrieval after failed reload = %+v", res.Matches)
	}
}

func TestReloader_StoreOnly(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	retriever := retrieval.NewRetriever(nil, nil)
	r := NewReloader(store, retriever)

	if _, err := r.Reload(ctx); !errors.Is(err, retrieval.ErrStoreUnavailable) {
		t.Errorf("empty store: got %v, want ErrStoreUnavailable", err)
	}
	if err := store.ReplaceVerses(ctx, []*models.Verse{{Chapter: 1, Verse: 1, Translation: "Dhritarashtra said."}}); err != nil {
		t.Fatal(err)
	}
	r.OnSourcesChanged([]string{"/ignored"})
	if retriever.Snapshot().Len() != 1 {
		t.Errorf("snapshot len after callback = %d", retriever.Snapshot().Len())
	}
}

func TestHandleReload(t *testing.T) {
	r, retriever, _, _ := newReloadFixture(t)
	composer := guidance.NewComposer(retriever, &fakeGenerator{answer: "ok"})
	env := newTestEnv(t, false)
	srv := NewServer(composer, retriever, env.store, env.srv.config, zap.NewNop(), WithReloader(r))
	env.handler = srv.Router()

	w := env.do(t, http.MethodPost, "/api/v1/admin/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload: got %d, body %s", w.Code, w.Body.String())
	}
	var st ReloadStatus
	decode(t, w, &st)
	if st.Verses != 3 {
		t.Errorf("reload status = %+v", st)
	}

	w = env.do(t, http.MethodGet, "/api/v1/status", nil)
	var out map[string]interface{}
	decode(t, w, &out)
	if _, ok := out["reload"]; !ok {
		t.Error("status should include reload")
	}
	if out["verses"] != float64(3) {
		t.Errorf("verses = %v", out["verses"])
	}
}
