package game

import (
	"context"
	"time"

	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// ANSWER HANDLING
// =============================================================================

// SubmitAnswer records a player's answer to the open question. Timing comes
// from the room deadline; clientTimeLeft is only logged. A submission after
// the deadline scores 0 and closes the question itself if the timer has not
// done so yet.
func (m *Manager) SubmitAnswer(ctx context.Context, c Client, req internal.SubmitAnswerData) error {
	if req.AnswerIndex == nil {
		return validationError("answerIndex is required")
	}
	room, err := m.getRoom(req.Pin)
	if err != nil {
		return err
	}
	sess, ok := m.registry.Lookup(c.Id())
	if !ok || sess.Role != internal.RolePlayer || sess.Pin != room.Pin {
		return authorizationError("only players in this game can answer")
	}

	return m.mutate(room, func(out *outbox) error {
		if room.Phase != internal.PhaseQuestion || room.ActiveQuestion == nil {
			return conflictError("no question is open")
		}
		player := room.Players[sess.PlayerId]
		if player == nil {
			return notFoundError("player is no longer in this game")
		}
		if player.HasAnswered(room.QuestionIndex) {
			return conflictError("answer already submitted")
		}

		q := room.ActiveQuestion
		choice := *req.AnswerIndex
		if choice < 0 || choice >= len(q.Options) {
			return validationError("answerIndex must be between 0 and %d", len(q.Options)-1)
		}

		now := m.clock.Now()
		budget := time.Duration(q.Seconds) * time.Second
		late := now.After(room.QuestionDeadline)
		elapsed := elapsedFor(now, room.QuestionDeadline, budget)
		correct := choice == q.CorrectIndex

		points := 0
		if !late {
			points = Score(correct, elapsed, budget)
		}

		player.RecordAnswer(internal.Answer{
			QuestionIndex: room.QuestionIndex,
			OptionIndex:   choice,
			SubmittedAt:   now,
			Elapsed:       elapsed,
			Correct:       correct,
			Late:          late,
			Points:        points,
		})
		room.LastActivity = now

		if req.ClientTimeLeft != nil {
			m.logger.Debug("[SubmitAnswer] client timing",
				"pin", room.Pin, "player", player.Id, "client_time_left", *req.ClientTimeLeft, "elapsed", elapsed)
		}
		m.logger.Info("[SubmitAnswer] answer recorded",
			"pin", room.Pin, "player", player.Id, "question", room.QuestionIndex,
			"correct", correct, "late", late, "points", points)

		out.toClient(c, envelope(internal.MsgAnswerResult, internal.AnswerResultData{
			QuestionIndex: room.QuestionIndex,
			IsCorrect:     correct,
			Late:          late,
			Points:        points,
			Score:         player.Score,
		}))
		answerCount(room, out)

		if late || room.HasEveryoneAnswered() {
			m.closeQuestion(room, out)
		}
		return nil
	})
}
