package game

import (
	"context"
	"time"

	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// GAME FLOW - QUESTION MANAGEMENT
// =============================================================================

const (
	ReasonCompleted = "completed"
	ReasonHostEnded = "host_ended"
	ReasonHostLeft  = "host_left"
	ReasonIdle      = "idle"
	ReasonShutdown  = "shutdown"
)

// openQuestion moves the room into the question phase. Caller holds room.Mu.
func (m *Manager) openQuestion(room *internal.Room, index int, out *outbox) {
	q := room.Questions[index]
	budget := time.Duration(q.Seconds) * time.Second
	now := m.clock.Now()

	room.Phase = internal.PhaseQuestion
	room.QuestionIndex = index
	room.QuestionSeq++
	room.ActiveQuestion = &room.Questions[index]
	room.QuestionStartedAt = now
	room.QuestionDeadline = now.Add(budget)
	room.LastActivity = now
	room.ResetAnswers()

	m.armDeadline(room, budget)

	out.toRoom(room.Pin, envelope(internal.MsgNewQuestion, newQuestionData(room)))
	roomUpdate(room, out)
	answerCount(room, out)

	m.logger.Info("[openQuestion] question opened",
		"pin", room.Pin, "index", index, "total", len(room.Questions), "seconds", q.Seconds)
}

func newQuestionData(room *internal.Room) internal.NewQuestionData {
	q := room.ActiveQuestion
	return internal.NewQuestionData{
		Pin:      room.Pin,
		Index:    room.QuestionIndex,
		Total:    len(room.Questions),
		Text:     q.Text,
		Options:  append([]string(nil), q.Options...),
		Seconds:  q.Seconds,
		Deadline: room.QuestionDeadline,
	}
}

// closeQuestion ends the question phase and publishes the leaderboard with
// the correct option revealed. Caller holds room.Mu.
func (m *Manager) closeQuestion(room *internal.Room, out *outbox) {
	m.cancelDeadline(room)

	correct := room.ActiveQuestion.CorrectIndex
	room.Phase = internal.PhaseResults
	room.ActiveQuestion = nil
	room.LastActivity = m.clock.Now()

	out.toRoom(room.Pin, envelope(internal.MsgLeaderboard, leaderboardData(room, &correct)))
	roomUpdate(room, out)

	m.logger.Info("[closeQuestion] question closed",
		"pin", room.Pin, "index", room.QuestionIndex, "answered", room.AnsweredCount())
}

func leaderboardData(room *internal.Room, correctIndex *int) internal.LeaderboardData {
	return internal.LeaderboardData{
		Pin:            room.Pin,
		Phase:          room.Phase,
		QuestionIndex:  room.QuestionIndex,
		TotalQuestions: len(room.Questions),
		CorrectIndex:   correctIndex,
		Players:        room.Standings(),
	}
}

// NextQuestion advances from results to the next question, or finishes the
// game after the last one.
func (m *Manager) NextQuestion(ctx context.Context, c Client, req internal.PinData) error {
	room, err := m.hostRoom(c, req.Pin, "advance the game")
	if err != nil {
		return err
	}

	return m.mutate(room, func(out *outbox) error {
		switch room.Phase {
		case internal.PhaseResults:
		case internal.PhaseLobby:
			return conflictError("game has not started")
		case internal.PhaseQuestion:
			return conflictError("question is still open")
		default:
			return conflictError("game has ended")
		}

		if !room.HasNextQuestion() {
			m.endRoom(room, ReasonCompleted, out)
			return nil
		}
		m.openQuestion(room, room.QuestionIndex+1, out)
		return nil
	})
}

// EndGame finishes the game early. An open question is closed first so its
// answers are reflected in the final standings.
func (m *Manager) EndGame(ctx context.Context, c Client, req internal.PinData) error {
	room, err := m.hostRoom(c, req.Pin, "end the game")
	if err != nil {
		return err
	}

	return m.mutate(room, func(out *outbox) error {
		if room.Phase == internal.PhaseEnded {
			return conflictError("game has already ended")
		}
		if room.Phase == internal.PhaseQuestion {
			m.closeQuestion(room, out)
		}
		m.endRoom(room, ReasonHostEnded, out)
		return nil
	})
}

// endRoom moves the room to its terminal phase and queues the summary for
// archiving. Caller holds room.Mu.
func (m *Manager) endRoom(room *internal.Room, reason string, out *outbox) {
	m.cancelDeadline(room)

	now := m.clock.Now()
	room.Phase = internal.PhaseEnded
	room.ActiveQuestion = nil
	room.EndedAt = now
	room.EndReason = reason
	room.LastActivity = now

	standings := room.Standings()
	out.toRoom(room.Pin, envelope(internal.MsgLeaderboard, leaderboardData(room, nil)))
	out.toRoom(room.Pin, envelope(internal.MsgGameEnded, internal.GameEndedData{
		Pin:     room.Pin,
		Reason:  reason,
		Players: standings,
	}))
	roomUpdate(room, out)
	out.archive(summarize(room))

	m.logger.Info("[endRoom] game ended", "pin", room.Pin, "reason", reason, "players", len(room.Players))
}

func summarize(room *internal.Room) internal.GameSummary {
	return internal.GameSummary{
		Pin:            room.Pin,
		Reason:         room.EndReason,
		TotalQuestions: len(room.Questions),
		QuestionsAsked: room.QuestionIndex + 1,
		CreatedAt:      room.CreatedAt,
		EndedAt:        room.EndedAt,
		Standings:      room.Standings(),
	}
}
