package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kabbel/internal/answer"
	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/retrieval"
	"github.com/hyperjump/kabbel/internal/storage"
	"go.uber.org/zap"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	s.logger.Debug("ask request", zap.String("question", req.Question))
	ans, err := s.engine.Ask(r.Context(), req.Question)
	if errors.Is(err, answer.ErrEmptyQuestion) {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  err.Error(),
			"answer": ans,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

type statisticsRequest struct {
	Terms     []string `json:"terms"`
	StartYear int      `json:"start_year"`
	EndYear   int      `json:"end_year"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	var req statisticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Terms) == 0 {
		s.respondError(w, http.StatusBadRequest, "terms are required")
		return
	}
	if req.StartYear == 0 || req.EndYear == 0 {
		s.respondError(w, http.StatusBadRequest, "start_year and end_year are required")
		return
	}
	if err := models.ValidateYearRange(req.StartYear, req.EndYear); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.engine.Statistics(r.Context(), req.Terms, req.StartYear, req.EndYear)
	if err != nil {
		s.logger.Error("statistics failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

type contextResponse struct {
	Passages []models.Passage `json:"passages"`
	Payload  string           `json:"payload"`
	Years    string           `json:"years"`
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var intent models.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if intent.StartYear == 0 || intent.EndYear == 0 {
		s.respondError(w, http.StatusBadRequest, "start_year and end_year are required")
		return
	}
	if err := intent.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	passages, payload := s.engine.Context(r.Context(), intent)
	if passages == nil {
		passages = []models.Passage{}
	}
	s.respondJSON(w, http.StatusOK, contextResponse{
		Passages: passages,
		Payload:  payload,
		Years:    retrieval.Years(passages, intent.StartYear, intent.EndYear),
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.records.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	if !s.config.Server.Admin {
		s.respondError(w, http.StatusForbidden, "admin endpoints are disabled")
		return
	}
	key := r.URL.Query().Get("key")
	value := r.URL.Query().Get("value")
	if key == "" || value == "" {
		s.respondError(w, http.StatusBadRequest, "key and value are required")
		return
	}
	s.logger.Info("delete records request", zap.String("key", key), zap.String("value", value))
	n, err := s.records.Delete(r.Context(), models.Eq{Key: key, Value: value})
	if errors.Is(err, models.ErrUnknownFilterKey) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": n, "key": key, "value": value})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := CollectStatus(r.Context(), s.records, s.config)
	if err != nil {
		s.logger.Error("status: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// CollectStatus counts records by type and reports index size, disk usage and key settings.
func CollectStatus(ctx context.Context, records RecordStore, cfg *config.Config) (*models.Status, error) {
	total, err := records.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	programs, err := records.Count(ctx, models.Eq{Key: models.KeyType, Value: models.TypeProgram})
	if err != nil {
		return nil, err
	}
	status := &models.Status{
		Records:         total,
		Programs:        programs,
		Debates:         total - programs,
		VectorIndexSize: records.Size(),
		Config: &models.StatusConfig{
			EmbeddingProvider:   cfg.Embedding.Provider,
			EmbeddingDimensions: cfg.Embedding.Dimensions,
			LLMModel:            cfg.LLM.Model,
			DatabasePath:        cfg.Storage.DatabasePath,
			BleveIndexPath:      cfg.Storage.BleveIndexPath,
			Parties:             cfg.PartyCodes(),
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
