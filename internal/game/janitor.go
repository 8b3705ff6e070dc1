package game

import (
	"context"
	"time"

	"github.com/scythe504/andevent-backend/internal"
)

// Run sweeps rooms every JanitorInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.clock.Ticker(m.opts.JanitorInterval)
	defer ticker.Stop()

	m.logger.Info("[Run] janitor started", "interval", m.opts.JanitorInterval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("[Run] janitor stopped")
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// sweep ends rooms whose host did not come back or that sat idle with no
// connected players, and forgets ended rooms once their retention has passed.
func (m *Manager) sweep(now time.Time) {
	var expired []string

	for _, room := range m.listRooms() {
		remove := false
		_ = m.mutate(room, func(out *outbox) error {
			switch {
			case room.Phase == internal.PhaseEnded:
				remove = now.Sub(room.EndedAt) >= m.opts.EndedRetention
			case !room.HostConnected && now.Sub(room.HostLeftAt) >= m.opts.HostGrace:
				if room.Phase == internal.PhaseQuestion {
					m.closeQuestion(room, out)
				}
				m.endRoom(room, ReasonHostLeft, out)
			case room.GetPlayerCount() == 0 && now.Sub(room.LastActivity) >= m.opts.IdleTimeout:
				if room.Phase == internal.PhaseQuestion {
					m.closeQuestion(room, out)
				}
				m.endRoom(room, ReasonIdle, out)
			}
			return nil
		})
		if remove {
			expired = append(expired, room.Pin)
		}
	}

	for _, pin := range expired {
		m.removeRoom(pin)
	}
}

// EndAll finishes every live room, used on shutdown so their results are archived.
func (m *Manager) EndAll(reason string) {
	for _, room := range m.listRooms() {
		_ = m.mutate(room, func(out *outbox) error {
			if room.Phase == internal.PhaseEnded {
				return nil
			}
			if room.Phase == internal.PhaseQuestion {
				m.closeQuestion(room, out)
			}
			m.endRoom(room, reason, out)
			return nil
		})
	}
}
