package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/database"
	"github.com/scythe504/andevent-backend/internal/game"
)

const maxBodyBytes = 1 << 20

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/questions", s.ListQuestions).Methods(http.MethodGet)
	api.HandleFunc("/questions", s.CreateQuestion).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id}", s.GetQuestion).Methods(http.MethodGet)
	api.HandleFunc("/questions/{id}", s.UpdateQuestion).Methods(http.MethodPut)
	api.HandleFunc("/questions/{id}", s.DeleteQuestion).Methods(http.MethodDelete)

	api.HandleFunc("/games", s.ListGames).Methods(http.MethodGet)
	api.HandleFunc("/games/{pin}", s.GetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{pin}/leaderboard", s.GetLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/results", s.ListResults).Methods(http.MethodGet)

	r.Handle("/ws", s.ws)
	r.Handle("/socket", s.ws)

	// Outside the router so preflight requests skip method matching.
	return cors.AllowAll().Handler(r)
}

// =============================================================================
// RESPONSES
// =============================================================================

func (s *Server) respond(w http.ResponseWriter, startTime int64, status int, data any) {
	endTime := time.Now().UnixMilli()
	resp := internal.Response{
		StatusCode:    status,
		RespStartTime: startTime,
		RespEndTime:   endTime,
		NetRespTime:   endTime - startTime,
		Data:          data,
	}
	if status >= http.StatusBadRequest {
		if msg, ok := data.(string); ok {
			resp.Error = msg
			resp.Data = nil
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("[respond] encoding response failed", "error", err)
	}
}

// respondError maps store and game errors to HTTP statuses.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, startTime int64, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var gameErr *game.Error
	switch {
	case errors.Is(err, internal.ErrInvalidQuestion):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, database.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, database.ErrDuplicate):
		status, msg = http.StatusConflict, err.Error()
	case errors.As(err, &gameErr):
		msg = gameErr.Message
		switch gameErr.Kind {
		case game.KindValidation:
			status = http.StatusBadRequest
		case game.KindNotFound:
			status = http.StatusNotFound
		case game.KindStateConflict:
			status = http.StatusConflict
		case game.KindAuthorization:
			status = http.StatusForbidden
		default:
			msg = "internal server error"
		}
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("[respondError] request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.respond(w, startTime, status, msg)
}

// questionResource is the bare body the question endpoints return. It
// carries the id twice, as "id" and as the "_id" the admin client keys on.
type questionResource struct {
	DocId string `json:"_id"`
	internal.Question
}

func toResource(q internal.Question) questionResource {
	return questionResource{DocId: q.Id, Question: q}
}

// writeJSON writes v without the response envelope.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("[writeJSON] encoding response failed", "error", err)
	}
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (internal.Question, error) {
	var q internal.Question
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		return q, fmt.Errorf("%w: %v", internal.ErrInvalidQuestion, err)
	}
	return q, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	stats := s.db.Health(r.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	s.respond(w, startTime, status, map[string]any{
		"database":    stats,
		"games":       len(s.games.Games()),
		"connections": s.games.Registry().Count(),
	})
}

func (s *Server) ListQuestions(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	questions, err := s.db.ListQuestions(r.Context())
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := questions[:0]
		for _, q := range questions {
			if strings.EqualFold(q.Category, category) {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}

	resources := make([]questionResource, 0, len(questions))
	for _, q := range questions {
		resources = append(resources, toResource(q))
	}
	s.writeJSON(w, http.StatusOK, resources)
}

func (s *Server) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	q, err := decodeQuestion(w, r)
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	created, err := s.db.CreateQuestion(r.Context(), q)
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toResource(created))
}

func (s *Server) GetQuestion(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	q, err := s.db.GetQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResource(q))
}

func (s *Server) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	q, err := decodeQuestion(w, r)
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	updated, err := s.db.UpdateQuestion(r.Context(), mux.Vars(r)["id"], q)
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResource(updated))
}

func (s *Server) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	id := mux.Vars(r)["id"]
	if err := s.db.DeleteQuestion(r.Context(), id); err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) ListGames(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	s.respond(w, startTime, http.StatusOK, s.games.Games())
}

func (s *Server) GetGame(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	info, err := s.games.Game(mux.Vars(r)["pin"])
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.respond(w, startTime, http.StatusOK, info)
}

func (s *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	board, err := s.games.Leaderboard(mux.Vars(r)["pin"])
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.respond(w, startTime, http.StatusOK, board)
}

func (s *Server) ListResults(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respond(w, startTime, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	results, err := s.db.ListGameResults(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, startTime, err)
		return
	}
	s.respond(w, startTime, http.StatusOK, results)
}
