package game

import (
	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// BROADCASTING & MESSAGING
// =============================================================================

type delivery struct {
	client Client
	pin    string
	role   internal.Role
	msg    any
}

// outbox collects messages while a room is locked; flush sends them after.
type outbox struct {
	deliveries []delivery
	summaries  []internal.GameSummary
}

func envelope[T any](typ string, data T) internal.Message[T] {
	return internal.Message[T]{Type: typ, Data: data}
}

func (o *outbox) toClient(c Client, msg any) {
	o.deliveries = append(o.deliveries, delivery{client: c, msg: msg})
}

func (o *outbox) toRoom(pin string, msg any) {
	o.deliveries = append(o.deliveries, delivery{pin: pin, msg: msg})
}

func (o *outbox) toHost(pin string, msg any) {
	o.deliveries = append(o.deliveries, delivery{pin: pin, role: internal.RoleHost, msg: msg})
}

func (o *outbox) archive(summary internal.GameSummary) {
	o.summaries = append(o.summaries, summary)
}

func (m *Manager) flush(out *outbox) {
	for _, d := range out.deliveries {
		if d.client != nil {
			m.send(d.client, d.msg)
			continue
		}
		m.broadcast(d.pin, d.role, d.msg)
	}
	for _, summary := range out.summaries {
		m.archive(summary)
	}
}

func (m *Manager) send(c Client, msg any) {
	if err := c.WriteJSON(msg); err != nil {
		m.logger.Warn("[send] write failed", "client", c.Id(), "error", err)
	}
}

// broadcast fans out to the sessions of one room, optionally only one role.
func (m *Manager) broadcast(pin string, role internal.Role, msg any) {
	sessions := m.registry.RoomSessions(pin)

	successCount := 0
	for _, sess := range sessions {
		if role != "" && sess.Role != role {
			continue
		}
		if err := sess.Client.WriteJSON(msg); err != nil {
			m.logger.Warn("[broadcast] write failed",
				"pin", pin, "client", sess.Client.Id(), "role", sess.Role, "error", err)
			continue
		}
		successCount++
	}
	m.logger.Debug("[broadcast] delivered", "pin", pin, "sent", successCount, "sessions", len(sessions))
}

// roomUpdate queues the full room snapshot to everyone in the room.
func roomUpdate(room *internal.Room, out *outbox) {
	out.toRoom(room.Pin, envelope(internal.MsgRoomUpdate, room.Snapshot()))
}

func answerCount(room *internal.Room, out *outbox) {
	out.toHost(room.Pin, envelope(internal.MsgAnswerCount, internal.AnswerCountData{
		Pin:      room.Pin,
		Answered: room.AnsweredCount(),
		Total:    room.GetPlayerCount(),
	}))
}
