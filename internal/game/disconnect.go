package game

import (
	"slices"

	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// DISCONNECT HANDLING
// =============================================================================

// Disconnect unbinds a closed connection. A lobby player is removed and
// frees their name; after the start a player is only marked disconnected
// and keeps their score for a rejoin. A host leaving starts the reclaim
// grace period.
func (m *Manager) Disconnect(c Client) {
	sess, ok := m.registry.Unbind(c.Id())
	if !ok {
		return
	}

	m.mu.RLock()
	room, exists := m.rooms[sess.Pin]
	m.mu.RUnlock()
	if !exists {
		return
	}

	_ = m.mutate(room, func(out *outbox) error {
		if room.Phase == internal.PhaseEnded {
			return nil
		}

		if sess.Role == internal.RoleHost {
			room.HostConnected = false
			room.HostLeftAt = m.clock.Now()
			roomUpdate(room, out)
			m.logger.Info("[Disconnect] host disconnected", "pin", room.Pin, "grace", m.opts.HostGrace)
			return nil
		}

		player := room.Players[sess.PlayerId]
		if player == nil {
			return nil
		}

		if room.Phase == internal.PhaseLobby {
			delete(room.Players, player.Id)
			room.PlayerOrder = slices.DeleteFunc(room.PlayerOrder, func(id string) bool {
				return id == player.Id
			})
			m.logger.Info("[Disconnect] player left lobby", "pin", room.Pin, "player", player.Id, "name", player.Name)
		} else {
			player.Connected = false
			m.logger.Info("[Disconnect] player disconnected", "pin", room.Pin, "player", player.Id, "score", player.Score)
		}
		roomUpdate(room, out)

		if room.Phase == internal.PhaseQuestion {
			answerCount(room, out)
			if room.HasEveryoneAnswered() {
				m.closeQuestion(room, out)
			}
		}
		return nil
	})
}
