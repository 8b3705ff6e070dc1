package game

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// RESULTS & READ API
// =============================================================================

// archive hands a finished game to every sink in the background.
func (m *Manager) archive(summary internal.GameSummary) {
	for name, sink := range m.opts.Sinks {
		m.archives.Add(1)
		go func() {
			defer m.archives.Done()

			ctx, cancel := context.WithTimeout(context.Background(), m.opts.ArchiveTimeout)
			defer cancel()

			if err := sink(ctx, summary); err != nil {
				m.logger.Error("[archive] sink failed", "sink", name, "pin", summary.Pin, "error", err)
				return
			}
			m.logger.Debug("[archive] summary stored", "sink", name, "pin", summary.Pin)
		}()
	}
}

// GameInfo is the public view of a room for the REST API.
type GameInfo struct {
	Pin            string             `json:"pin"`
	Phase          internal.GamePhase `json:"phase"`
	QuestionIndex  int                `json:"questionIndex"`
	TotalQuestions int                `json:"totalQuestions"`
	Players        int                `json:"players"`
	HostConnected  bool               `json:"hostConnected"`
	CreatedAt      time.Time          `json:"createdAt"`
	EndedAt        *time.Time         `json:"endedAt,omitempty"`
	EndReason      string             `json:"endReason,omitempty"`
}

func gameInfo(room *internal.Room) GameInfo {
	info := GameInfo{
		Pin:            room.Pin,
		Phase:          room.Phase,
		QuestionIndex:  room.QuestionIndex,
		TotalQuestions: len(room.Questions),
		Players:        room.GetPlayerCount(),
		HostConnected:  room.HostConnected,
		CreatedAt:      room.CreatedAt,
		EndReason:      room.EndReason,
	}
	if !room.EndedAt.IsZero() {
		endedAt := room.EndedAt
		info.EndedAt = &endedAt
	}
	return info
}

// Games lists every room the manager holds, newest first.
func (m *Manager) Games() []GameInfo {
	rooms := m.listRooms()
	games := make([]GameInfo, 0, len(rooms))
	for _, room := range rooms {
		room.Mu.RLock()
		games = append(games, gameInfo(room))
		room.Mu.RUnlock()
	}
	slices.SortFunc(games, func(a, b GameInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Pin, b.Pin)
	})
	return games
}

func (m *Manager) Game(pin string) (GameInfo, error) {
	room, err := m.getRoom(pin)
	if err != nil {
		return GameInfo{}, err
	}
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return gameInfo(room), nil
}

func (m *Manager) Leaderboard(pin string) (internal.LeaderboardData, error) {
	room, err := m.getRoom(pin)
	if err != nil {
		return internal.LeaderboardData{}, err
	}
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return leaderboardData(room, nil), nil
}
