package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/guidance"
	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/internal/storage"
)

// errorResponse is the JSON body of every failed request. Keywords and Suggestions
// are set only for questions that matched no verse.
type errorResponse struct {
	Error       string   `json:"error"`
	Keywords    []string `json:"keywords,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (s *Server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	var query models.GuidanceQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("guidance request", zap.String("query", query.Query), zap.Int("max_results", query.MaxResults))
	answer, err := s.composer.Compose(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "guidance", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.GuidanceQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("verse search request", zap.String("query", query.Query), zap.Int("max_results", query.MaxResults))
	result, err := s.composer.Search(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "verse search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, retrieval.ErrInvalidQuery.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":    q,
		"keywords": s.retriever.ExtractKeywords(q),
	})
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	chapter, ok := s.chapterParam(w, r)
	if !ok {
		return
	}
	verses, err := s.storage.ChapterVerses(r.Context(), chapter)
	if err != nil {
		s.respondFailure(w, "chapter lookup", err)
		return
	}
	if len(verses) == 0 {
		s.respondError(w, http.StatusNotFound, "chapter not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"chapter": chapter,
		"verses":  verses,
	})
}

func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	chapter, ok := s.chapterParam(w, r)
	if !ok {
		return
	}
	label := chi.URLParam(r, "verse")
	if _, err := models.ParseVerseLabel(label); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	verse, err := s.storage.GetVerse(r.Context(), chapter, label)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "verse not found")
			return
		}
		s.respondFailure(w, "verse lookup", err)
		return
	}
	s.respondJSON(w, http.StatusOK, verse)
}

func (s *Server) chapterParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil || chapter < models.MinChapter || chapter > models.MaxChapter {
		s.respondError(w, http.StatusBadRequest, "chapter must be a number between 1 and 18")
		return 0, false
	}
	return chapter, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.retriever.Snapshot()
	resp := map[string]interface{}{
		"ready":          snap.Len() > 0,
		"verses":         snap.Len(),
		"chapters":       0,
		"generator":      s.composer.GeneratorName(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if snap != nil {
		resp["chapters"] = len(snap.Chapters())
	}

	counts := map[string]func(context.Context) (int64, error){
		"stored_verses": s.storage.CountVerses,
		"embeddings":    s.storage.CountEmbeddings,
		"reflections":   s.storage.CountReflections,
	}
	for name, count := range counts {
		n, err := count(ctx)
		if err != nil {
			s.logger.Error("status: count failed", zap.String("count", name), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp[name] = n
	}

	if s.reloader != nil {
		resp["reload"] = s.reloader.Status()
	}

	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"matcher":             s.config.Retrieval.Matcher,
			"max_keywords":        s.config.Retrieval.MaxKeywords,
			"default_max_results": s.config.Retrieval.DefaultMaxResults,
			"hard_max_results":    s.config.Retrieval.HardMaxResults,
			"llm_provider":        s.config.LLM.Provider,
			"database_path":       s.config.Storage.DatabasePath,
			"bleve_index_path":    s.config.Storage.BleveIndexPath,
			"vector_index_path":   s.config.Storage.VectorIndexPath,
			"sources":             s.config.Ingest.Sources,
			"watch":               s.config.Ingest.Watch,
		}
		usage, total, err := storage.DiskUsage(map[string]string{
			"database":     s.config.Storage.DatabasePath,
			"bleve_index":  s.config.Storage.BleveIndexPath,
			"vector_index": s.config.Storage.VectorIndexPath,
		})
		if err == nil {
			resp["disk_usage"] = usage
			resp["disk_usage_bytes"] = total
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		s.respondError(w, http.StatusNotImplemented, "reload not enabled")
		return
	}
	st, err := s.reloader.Reload(r.Context())
	if err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		s.respondJSON(w, statusFor(err), st)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, retrieval.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, guidance.ErrNoMatches), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, retrieval.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, guidance.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure writes err with its mapped status. Server-side failures are logged;
// client errors and empty results are only debug-logged.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	body := errorResponse{Error: err.Error()}
	var nm *guidance.NoMatchError
	if errors.As(err, &nm) {
		body.Keywords = nm.Keywords
		body.Suggestions = nm.Suggestions
	}
	s.respondJSON(w, status, body)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}
