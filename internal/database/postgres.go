package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scythe504/andevent-backend/internal"
)

const (
	connectTimeout  = 5 * time.Second
	uniqueViolation = "23505"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id            TEXT PRIMARY KEY,
	text          TEXT NOT NULL,
	options       TEXT[] NOT NULL,
	correct_index INT NOT NULL,
	seconds       INT NOT NULL,
	difficulty    TEXT NOT NULL,
	category      TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS game_results (
	id              BIGSERIAL PRIMARY KEY,
	pin             TEXT NOT NULL,
	reason          TEXT NOT NULL,
	total_questions INT NOT NULL,
	questions_asked INT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	ended_at        TIMESTAMPTZ NOT NULL,
	standings       JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS game_results_ended_at_idx ON game_results (ended_at DESC);
`

const questionColumns = `id, text, options, correct_index, seconds, difficulty, category, created_at, updated_at`

type postgresService struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects to dsn and makes sure the schema exists.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (Service, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	if logger == nil {
		logger = discardLogger()
	}
	s := &postgresService{pool: pool, logger: logger.With("component", "database")}
	s.logger.Info("[NewPostgres] connected", "database", pool.Config().ConnConfig.Database)
	return s, nil
}

// Health checks the health of the database connection by pinging it.
func (s *postgresService) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.logger.Error("[Health] database down", "error", err)
		return stats
	}

	stat := s.pool.Stat()
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["driver"] = "postgres"
	stats["open_connections"] = strconv.Itoa(int(stat.TotalConns()))
	stats["in_use"] = strconv.Itoa(int(stat.AcquiredConns()))
	stats["idle"] = strconv.Itoa(int(stat.IdleConns()))
	stats["max_connections"] = strconv.Itoa(int(stat.MaxConns()))

	if stat.AcquiredConns() > stat.MaxConns()*4/5 {
		stats["message"] = "The database is experiencing heavy load."
	}
	return stats
}

func scanQuestion(row pgx.CollectableRow) (internal.Question, error) {
	var q internal.Question
	var difficulty string
	err := row.Scan(&q.Id, &q.Text, &q.Options, &q.CorrectIndex, &q.Seconds,
		&difficulty, &q.Category, &q.CreatedAt, &q.UpdatedAt)
	q.Difficulty = internal.Difficulty(difficulty)
	return q, err
}

func (s *postgresService) ListQuestions(ctx context.Context) ([]internal.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return nil, fmt.Errorf("scan questions: %w", err)
	}
	return questions, nil
}

func (s *postgresService) GetQuestion(ctx context.Context, id string) (internal.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err != nil {
		return internal.Question{}, fmt.Errorf("get question: %w", err)
	}
	q, err := pgx.CollectExactlyOneRow(rows, scanQuestion)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Question{}, notFound(id)
	}
	if err != nil {
		return internal.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *postgresService) CreateQuestion(ctx context.Context, q internal.Question) (internal.Question, error) {
	q, err := prepare(q, time.Now().UTC())
	if err != nil {
		return internal.Question{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.Id, q.Text, q.Options, q.CorrectIndex, q.Seconds, string(q.Difficulty), q.Category, q.CreatedAt, q.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return internal.Question{}, fmt.Errorf("%w: %s", ErrDuplicate, q.Id)
	}
	if err != nil {
		return internal.Question{}, fmt.Errorf("insert question: %w", err)
	}

	s.logger.Info("[CreateQuestion] question stored", "id", q.Id, "category", q.Category)
	return q, nil
}

func (s *postgresService) UpdateQuestion(ctx context.Context, id string, q internal.Question) (internal.Question, error) {
	q.Id = id
	q, err := prepare(q, time.Now().UTC())
	if err != nil {
		return internal.Question{}, err
	}

	err = s.pool.QueryRow(ctx, `
		UPDATE questions
		SET text = $2, options = $3, correct_index = $4, seconds = $5,
		    difficulty = $6, category = $7, updated_at = $8
		WHERE id = $1
		RETURNING created_at`,
		q.Id, q.Text, q.Options, q.CorrectIndex, q.Seconds, string(q.Difficulty), q.Category, q.UpdatedAt,
	).Scan(&q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Question{}, notFound(id)
	}
	if err != nil {
		return internal.Question{}, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

func (s *postgresService) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *postgresService) SeedQuestions(ctx context.Context, questions []internal.Question) (int, error) {
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, raw := range questions {
		q, err := prepare(raw, now)
		if err != nil {
			s.logger.Warn("[SeedQuestions] skipping invalid question", "id", raw.Id, "error", err)
			continue
		}
		batch.Queue(`
			INSERT INTO questions (`+questionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			q.Id, q.Text, q.Options, q.CorrectIndex, q.Seconds, string(q.Difficulty), q.Category, q.CreatedAt, q.UpdatedAt)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	added := 0
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return added, fmt.Errorf("seed questions: %w", err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (s *postgresService) SaveGameResult(ctx context.Context, summary internal.GameSummary) error {
	standings, err := json.Marshal(summary.Standings)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_results (pin, reason, total_questions, questions_asked, created_at, ended_at, standings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		summary.Pin, summary.Reason, summary.TotalQuestions, summary.QuestionsAsked,
		summary.CreatedAt, summary.EndedAt, standings)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

func (s *postgresService) ListGameResults(ctx context.Context, limit int) ([]internal.GameSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT pin, reason, total_questions, questions_asked, created_at, ended_at, standings
		FROM game_results
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list game results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (internal.GameSummary, error) {
		var summary internal.GameSummary
		var standings []byte
		if err := row.Scan(&summary.Pin, &summary.Reason, &summary.TotalQuestions, &summary.QuestionsAsked,
			&summary.CreatedAt, &summary.EndedAt, &standings); err != nil {
			return summary, err
		}
		return summary, json.Unmarshal(standings, &summary.Standings)
	})
	if err != nil {
		return nil, fmt.Errorf("scan game results: %w", err)
	}
	return results, nil
}

func (s *postgresService) Close() error {
	s.logger.Info("[Close] disconnected from database")
	s.pool.Close()
	return nil
}
