package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/habiliai/agentmemory"
	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/retrieve"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type (
	messageRequest struct {
		UserID         string `json:"user_id"`
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}

	searchRequest struct {
		UserID string `json:"user_id"`
		Query  string `json:"query"`
		Limit  int    `json:"limit"`
	}

	deleteRequest struct {
		UserID        string `json:"user_id"`
		MemoryContent string `json:"memory_content"`
		Reason        string `json:"reason"`
	}

	extractResponse struct {
		ExtractedMemories []memory.WriteResult `json:"extracted_memories"`
		Message           string               `json:"message"`
		ProcessingTime    float64              `json:"processing_time"`
	}

	searchResponse struct {
		Memories   []retrieve.Result `json:"memories"`
		Query      string            `json:"query"`
		SearchTime float64           `json:"search_time"`
		TotalFound int               `json:"total_found"`
	}

	deleteResponse struct {
		Message         string           `json:"message"`
		DeletedMemories []*memory.Record `json:"deleted_memories"`
		Reason          string           `json:"reason,omitempty"`
	}

	listResponse struct {
		Memories   []*memory.Record `json:"memories"`
		TotalCount int              `json:"total_count"`
		UserID     string           `json:"user_id"`
	}

	server struct {
		engine  *agentmemory.Engine
		limiter *userRateLimiter
		logger  *slog.Logger
	}
)

var errRateLimited = errors.New("rate limit exceeded")

func createServerHandler(ctx context.Context, engine *agentmemory.Engine, conf *config.ServerConfig, logger *slog.Logger) http.Handler {
	s := &server{
		engine:  engine,
		limiter: newUserRateLimiter(conf.RateLimit, conf.RateBurst),
		logger:  logger,
	}
	go s.limiter.cleanupLoop(ctx)

	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods("GET")
	router.HandleFunc("/extract-memories", s.extractMemories).Methods("POST")
	router.HandleFunc("/search-memories", s.searchMemories).Methods("POST")
	router.HandleFunc("/process-and-chat", s.processAndChat).Methods("POST")
	router.HandleFunc("/delete-memory", s.deleteMemory).Methods("DELETE")
	router.HandleFunc("/user-memories/{user_id}", s.userMemories).Methods("GET")
	router.HandleFunc("/user-stats/{user_id}", s.userStats).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true), handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)))

	return cors(recovery(router))
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	status := http.StatusOK
	if h.Status == agentmemory.HealthFailed {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, h)
}

func (s *server) extractMemories(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) || !s.allow(w, req.UserID) {
		return
	}

	start := time.Now()
	writes, err := s.engine.Remember(r.Context(), req.UserID, req.Message, agentmemory.WithConversationID(req.ConversationID))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, extractResponse{
		ExtractedMemories: writes,
		Message:           "Extracted " + strconv.Itoa(len(writes)) + " memories",
		ProcessingTime:    time.Since(start).Seconds(),
	})
}

func (s *server) searchMemories(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) || !s.allow(w, req.UserID) {
		return
	}
	if req.Limit > agentmemory.MaxSearchLimit {
		s.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "limit must be at most %d", agentmemory.MaxSearchLimit))
		return
	}

	start := time.Now()
	results, err := s.engine.SearchMemories(r.Context(), req.UserID, req.Query, req.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, searchResponse{
		Memories:   results,
		Query:      req.Query,
		SearchTime: time.Since(start).Seconds(),
		TotalFound: len(results),
	})
}

func (s *server) processAndChat(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) || !s.allow(w, req.UserID) {
		return
	}

	resp := s.engine.ProcessAndChat(r.Context(), req.UserID, req.Message, agentmemory.WithConversationID(req.ConversationID))
	if resp.Outcome == agentmemory.OutcomeInvalidRequest {
		s.writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !s.decode(w, r, &req) || !s.allow(w, req.UserID) {
		return
	}

	deleted, err := s.engine.ForgetMemories(r.Context(), req.UserID, req.MemoryContent, req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(deleted) == 0 {
		s.writeError(w, errors.Wrapf(errors.ErrNotFound, "no memory contains %q", req.MemoryContent))
		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{
		Message:         "Deleted " + strconv.Itoa(len(deleted)) + " memories",
		DeletedMemories: deleted,
		Reason:          req.Reason,
	})
}

func (s *server) userMemories(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if !s.allow(w, userID) {
		return
	}

	var opts []agentmemory.ListOption
	query := r.URL.Query()
	if category := query.Get("category"); category != "" {
		opts = append(opts, agentmemory.WithCategory(memory.Category(category)))
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "invalid limit %q", v))
			return
		}
		opts = append(opts, agentmemory.WithLimit(limit))
	}

	records, err := s.engine.ListMemories(r.Context(), userID, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, listResponse{
		Memories:   records,
		TotalCount: len(records),
		UserID:     userID,
	})
}

func (s *server) userStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if !s.allow(w, userID) {
		return
	}

	stats, err := s.engine.Stats(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return false
	}
	return true
}

func (s *server) allow(w http.ResponseWriter, userID string) bool {
	if s.limiter.Allow(userID) {
		return true
	}
	s.writeError(w, errRateLimited)
	return false
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", mylog.Err(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Int("status", status), mylog.Err(err))
	}
	s.writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errors.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
