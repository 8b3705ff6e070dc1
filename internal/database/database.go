package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/utils"
)

var (
	ErrNotFound  = errors.New("question not found")
	ErrDuplicate = errors.New("question already exists")
)

// Service is the question bank and the archive of finished games.
type Service interface {
	// Health returns a map of health status information.
	Health(ctx context.Context) map[string]string

	ListQuestions(ctx context.Context) ([]internal.Question, error)
	GetQuestion(ctx context.Context, id string) (internal.Question, error)
	CreateQuestion(ctx context.Context, q internal.Question) (internal.Question, error)
	UpdateQuestion(ctx context.Context, id string, q internal.Question) (internal.Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	// SeedQuestions inserts questions whose id is not stored yet and
	// returns how many were added.
	SeedQuestions(ctx context.Context, questions []internal.Question) (int, error)

	SaveGameResult(ctx context.Context, summary internal.GameSummary) error
	ListGameResults(ctx context.Context, limit int) ([]internal.GameSummary, error)

	// Close terminates the database connection.
	Close() error
}

// prepare normalizes and validates a question before it is stored.
func prepare(q internal.Question, now time.Time) (internal.Question, error) {
	q.Options = append([]string(nil), q.Options...)
	q.Normalize()
	if err := q.Validate(); err != nil {
		return internal.Question{}, err
	}
	if q.Id == "" {
		q.Id = utils.GenerateId()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	return q, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
