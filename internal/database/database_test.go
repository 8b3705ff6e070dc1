package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/utils"
)

func sampleQuestion(id string) internal.Question {
	return internal.Question{
		Id:           id,
		Text:         "  Which planet is known as the red planet?  ",
		Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
		CorrectIndex: 1,
		Seconds:      20,
		Category:     "Science",
	}
}

func mustStartPostgres(t *testing.T) Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("database"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	srv, err := NewPostgres(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestMemoryService(t *testing.T) {
	runServiceSuite(t, NewMemory(nil))
}

func TestPostgresService(t *testing.T) {
	runServiceSuite(t, mustStartPostgres(t))
}

func runServiceSuite(t *testing.T, srv Service) {
	ctx := context.Background()

	t.Run("health", func(t *testing.T) {
		stats := srv.Health(ctx)
		assert.Equal(t, "up", stats["status"])
	})

	t.Run("create and get", func(t *testing.T) {
		created, err := srv.CreateQuestion(ctx, sampleQuestion(""))
		require.NoError(t, err)
		assert.NotEmpty(t, created.Id)
		assert.Equal(t, "Which planet is known as the red planet?", created.Text)
		assert.Equal(t, internal.DifficultyMedium, created.Difficulty)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := srv.GetQuestion(ctx, created.Id)
		require.NoError(t, err)
		assert.Equal(t, created.Options, got.Options)
		assert.Equal(t, 1, got.CorrectIndex)

		_, err = srv.CreateQuestion(ctx, got)
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("rejects invalid", func(t *testing.T) {
		q := sampleQuestion("")
		q.Options = q.Options[:3]
		_, err := srv.CreateQuestion(ctx, q)
		assert.ErrorIs(t, err, internal.ErrInvalidQuestion)

		q = sampleQuestion("")
		q.Seconds = 2
		_, err = srv.CreateQuestion(ctx, q)
		assert.ErrorIs(t, err, internal.ErrInvalidQuestion)
	})

	t.Run("update and delete", func(t *testing.T) {
		created, err := srv.CreateQuestion(ctx, sampleQuestion("update-me"))
		require.NoError(t, err)

		edit := sampleQuestion("")
		edit.Text = "Which planet has the most moons?"
		edit.CorrectIndex = 3
		edit.Difficulty = "HARD"
		updated, err := srv.UpdateQuestion(ctx, created.Id, edit)
		require.NoError(t, err)
		assert.Equal(t, created.Id, updated.Id)
		assert.Equal(t, internal.DifficultyHard, updated.Difficulty)
		assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond)

		got, err := srv.GetQuestion(ctx, created.Id)
		require.NoError(t, err)
		assert.Equal(t, 3, got.CorrectIndex)

		_, err = srv.UpdateQuestion(ctx, "missing", edit)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, srv.DeleteQuestion(ctx, created.Id))
		_, err = srv.GetQuestion(ctx, created.Id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, srv.DeleteQuestion(ctx, created.Id), ErrNotFound)
	})

	t.Run("seed skips existing and invalid", func(t *testing.T) {
		invalid := sampleQuestion("seed-bad")
		invalid.Category = ""
		seed := []internal.Question{sampleQuestion("seed-1"), sampleQuestion("seed-2"), invalid}

		added, err := srv.SeedQuestions(ctx, seed)
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		added, err = srv.SeedQuestions(ctx, seed)
		require.NoError(t, err)
		assert.Zero(t, added)

		all, err := srv.ListQuestions(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, q := range all {
			ids = append(ids, q.Id)
		}
		assert.Contains(t, ids, "seed-1")
		assert.Contains(t, ids, "seed-2")
		assert.NotContains(t, ids, "seed-bad")
	})

	t.Run("reseeding a csv export adds nothing", func(t *testing.T) {
		const export = `text,a,b,c,d,correct,seconds,difficulty,category
What is 2+2?,3,4,5,6,1,20,easy,math
Largest ocean?,Atlantic,Pacific,Indian,Arctic,1,20,,geography,ocean-1
`
		for round := range 2 {
			questions, err := utils.ParseQuestionsCSV(strings.NewReader(export), nil)
			require.NoError(t, err)
			require.Len(t, questions, 2)

			added, err := srv.SeedQuestions(ctx, questions)
			require.NoError(t, err)
			if round == 0 {
				assert.Equal(t, 2, added)
			} else {
				assert.Zero(t, added, "second import must not duplicate the bank")
			}
		}

		all, err := srv.ListQuestions(ctx)
		require.NoError(t, err)
		copies := 0
		for _, q := range all {
			if q.Text == "What is 2+2?" {
				copies++
			}
		}
		assert.Equal(t, 1, copies)

		got, err := srv.GetQuestion(ctx, "ocean-1")
		require.NoError(t, err)
		assert.Equal(t, "Largest ocean?", got.Text)
	})

	t.Run("game results", func(t *testing.T) {
		ended := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
		for i, pin := range []string{"AAAAAA", "BBBBBB"} {
			require.NoError(t, srv.SaveGameResult(ctx, internal.GameSummary{
				Pin:            pin,
				Reason:         "completed",
				TotalQuestions: 3,
				QuestionsAsked: 3,
				CreatedAt:      ended.Add(-10 * time.Minute),
				EndedAt:        ended.Add(time.Duration(i) * time.Minute),
				Standings: []internal.LeaderboardEntry{
					{Id: "p1", Name: "Ann", Score: 1950, Position: 1, Connected: true},
					{Id: "p2", Name: "Bo", Score: 500, Position: 2},
				},
			}))
		}

		results, err := srv.ListGameResults(ctx, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "BBBBBB", results[0].Pin)
		require.Len(t, results[0].Standings, 2)
		assert.Equal(t, 1950, results[0].Standings[0].Score)
		assert.Equal(t, "Bo", results[0].Standings[1].Name)
	})
}
