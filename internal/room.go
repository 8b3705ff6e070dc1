package internal

import (
	"slices"
	"strings"
)

// Methods (Room Struct). Callers hold Mu.

func (r *Room) GetPlayerCount() int {
	count := 0
	for _, player := range r.Players {
		if player.Connected {
			count++
		}
	}
	return count
}

func (r *Room) HasNextQuestion() bool {
	return r.QuestionIndex+1 < len(r.Questions)
}

// NameTaken reports whether name collides with any player in the roster,
// disconnected ones included.
func (r *Room) NameTaken(name string) bool {
	for _, player := range r.Players {
		if strings.EqualFold(player.Name, name) {
			return true
		}
	}
	return false
}

func (r *Room) ResetAnswers() {
	for _, player := range r.Players {
		player.ResetRoundState()
	}
}

func (r *Room) AnsweredCount() int {
	count := 0
	for _, player := range r.Players {
		if player.Connected && player.HasAnswered(r.QuestionIndex) {
			count++
		}
	}
	return count
}

// HasEveryoneAnswered needs at least one connected player; an empty room
// waits for the deadline instead.
func (r *Room) HasEveryoneAnswered() bool {
	connected := 0
	for _, player := range r.Players {
		if !player.Connected {
			continue
		}
		connected++
		if !player.HasAnswered(r.QuestionIndex) {
			return false
		}
	}

	return connected > 0
}

// Standings orders the full roster by score descending, ties by join order.
func (r *Room) Standings() []LeaderboardEntry {
	ordered := make([]*Player, 0, len(r.PlayerOrder))
	for _, id := range r.PlayerOrder {
		if p := r.Players[id]; p != nil {
			ordered = append(ordered, p)
		}
	}

	slices.SortStableFunc(ordered, func(a, b *Player) int {
		return b.Score - a.Score
	})

	entries := make([]LeaderboardEntry, 0, len(ordered))
	for idx, p := range ordered {
		entries = append(entries, LeaderboardEntry{
			Id:        p.Id,
			Name:      p.Name,
			Score:     p.Score,
			Position:  idx + 1,
			Connected: p.Connected,
		})
	}
	return entries
}

// Snapshot lists connected players only, in join order.
func (r *Room) Snapshot() RoomUpdateData {
	players := make([]PlayerSnapshot, 0, len(r.PlayerOrder))
	for _, id := range r.PlayerOrder {
		p := r.Players[id]
		if p == nil || !p.Connected {
			continue
		}
		players = append(players, p.ToSnapshot())
	}

	return RoomUpdateData{
		Pin:            r.Pin,
		State:          r.Phase,
		QuestionIndex:  r.QuestionIndex,
		TotalQuestions: len(r.Questions),
		HostConnected:  r.HostConnected,
		Players:        players,
	}
}
