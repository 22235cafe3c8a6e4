package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/storage"
)

const (
	defaultReflectionLimit = 20
	maxReflectionLimit     = 100
)

func (s *Server) handleCreateReflection(w http.ResponseWriter, r *http.Request) {
	var input models.ReflectionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.Text = strings.TrimSpace(input.Text)
	input.Reference = strings.TrimSpace(input.Reference)
	if input.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if input.Reference != "" {
		if _, _, err := models.ParseReference(input.Reference); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	refl, err := s.storage.CreateReflection(r.Context(), &input)
	if err != nil {
		s.respondFailure(w, "create reflection", err)
		return
	}
	s.logger.Debug("reflection created", zap.String("id", refl.ID), zap.String("reference", refl.Reference))
	s.respondJSON(w, http.StatusCreated, refl)
}

func (s *Server) handleListReflections(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultReflectionLimit)
	if err != nil || limit < 1 {
		s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxReflectionLimit {
		limit = maxReflectionLimit
	}
	ctx := r.Context()
	items, err := s.storage.ListReflections(ctx, offset, limit)
	if err != nil {
		s.respondFailure(w, "list reflections", err)
		return
	}
	total, err := s.storage.CountReflections(ctx)
	if err != nil {
		s.respondFailure(w, "count reflections", err)
		return
	}
	if items == nil {
		items = []*models.Reflection{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"reflections": items,
		"total":       total,
		"offset":      offset,
		"limit":       limit,
	})
}

func (s *Server) handleGetReflection(w http.ResponseWriter, r *http.Request) {
	id, ok := s.reflectionID(w, r)
	if !ok {
		return
	}
	refl, err := s.storage.GetReflection(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "reflection not found")
			return
		}
		s.respondFailure(w, "get reflection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, refl)
}

func (s *Server) handleDeleteReflection(w http.ResponseWriter, r *http.Request) {
	id, ok := s.reflectionID(w, r)
	if !ok {
		return
	}
	s.logger.Debug("delete reflection request", zap.String("id", id))
	if err := s.storage.DeleteReflection(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "reflection not found")
			return
		}
		s.respondFailure(w, "delete reflection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) reflectionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reflection id")
		return "", false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
