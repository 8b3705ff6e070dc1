package game

import (
	"time"

	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// armDeadline schedules the close of the current question. The callback
// carries the question sequence so a timer that fires after the question
// was closed some other way does nothing. Caller holds room.Mu.
func (m *Manager) armDeadline(room *internal.Room, budget time.Duration) {
	m.cancelDeadline(room)

	pin := room.Pin
	seq := room.QuestionSeq
	room.DeadlineTimer = m.clock.AfterFunc(budget, func() {
		m.onDeadline(pin, seq)
	})
	m.logger.Debug("[armDeadline] deadline armed", "pin", pin, "seq", seq, "budget", budget)
}

// cancelDeadline stops the pending deadline, if any. Caller holds room.Mu.
func (m *Manager) cancelDeadline(room *internal.Room) {
	if room.DeadlineTimer == nil {
		return
	}
	room.DeadlineTimer.Stop()
	room.DeadlineTimer = nil
}

func (m *Manager) onDeadline(pin string, seq int) {
	m.mu.RLock()
	room, ok := m.rooms[pin]
	m.mu.RUnlock()
	if !ok {
		return
	}

	_ = m.mutate(room, func(out *outbox) error {
		if room.Phase != internal.PhaseQuestion || room.QuestionSeq != seq {
			m.logger.Debug("[onDeadline] stale deadline ignored", "pin", pin, "seq", seq, "current", room.QuestionSeq)
			return nil
		}
		m.logger.Info("[onDeadline] time is up", "pin", pin, "question", room.QuestionIndex)
		m.closeQuestion(room, out)
		return nil
	})
}
