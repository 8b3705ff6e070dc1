package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/scythe504/andevent-backend/internal"
)

// memoryService keeps everything in process memory. It backs local runs
// without DATABASE_URL and the handler tests.
type memoryService struct {
	logger *slog.Logger

	mu        sync.RWMutex
	questions map[string]internal.Question
	order     []string
	results   []internal.GameSummary
}

func NewMemory(logger *slog.Logger) Service {
	if logger == nil {
		logger = discardLogger()
	}
	return &memoryService{
		logger:    logger.With("component", "database"),
		questions: make(map[string]internal.Question),
		order:     make([]string, 0),
	}
}

func (s *memoryService) Health(context.Context) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"status":    "up",
		"message":   "It's healthy",
		"driver":    "memory",
		"questions": strconv.Itoa(len(s.questions)),
	}
}

func (s *memoryService) ListQuestions(context.Context) ([]internal.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	questions := make([]internal.Question, 0, len(s.order))
	for _, id := range s.order {
		questions = append(questions, s.questions[id].Clone())
	}
	return questions, nil
}

func (s *memoryService) GetQuestion(_ context.Context, id string) (internal.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return internal.Question{}, notFound(id)
	}
	return q.Clone(), nil
}

func (s *memoryService) CreateQuestion(_ context.Context, q internal.Question) (internal.Question, error) {
	q, err := prepare(q, time.Now().UTC())
	if err != nil {
		return internal.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[q.Id]; exists {
		return internal.Question{}, fmt.Errorf("%w: %s", ErrDuplicate, q.Id)
	}
	s.questions[q.Id] = q
	s.order = append(s.order, q.Id)
	return q.Clone(), nil
}

func (s *memoryService) UpdateQuestion(_ context.Context, id string, q internal.Question) (internal.Question, error) {
	q.Id = id
	q, err := prepare(q, time.Now().UTC())
	if err != nil {
		return internal.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[id]
	if !ok {
		return internal.Question{}, notFound(id)
	}
	q.CreatedAt = existing.CreatedAt
	s.questions[id] = q
	return q.Clone(), nil
}

func (s *memoryService) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return notFound(id)
	}
	delete(s.questions, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *memoryService) SeedQuestions(_ context.Context, questions []internal.Question) (int, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, raw := range questions {
		q, err := prepare(raw, now)
		if err != nil {
			s.logger.Warn("[SeedQuestions] skipping invalid question", "id", raw.Id, "error", err)
			continue
		}
		if _, exists := s.questions[q.Id]; exists {
			continue
		}
		s.questions[q.Id] = q
		s.order = append(s.order, q.Id)
		added++
	}
	return added, nil
}

func (s *memoryService) SaveGameResult(_ context.Context, summary internal.GameSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary.Standings = slices.Clone(summary.Standings)
	s.results = append(s.results, summary)
	return nil
}

func (s *memoryService) ListGameResults(_ context.Context, limit int) ([]internal.GameSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]internal.GameSummary, 0, min(limit, len(s.results)))
	for i := len(s.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.results[i])
	}
	return out, nil
}

func (s *memoryService) Close() error {
	return nil
}
