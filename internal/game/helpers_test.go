package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/andevent-backend/internal"
)

type recorded struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type fakeClient struct {
	id string

	mu   sync.Mutex
	msgs []recorded
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id}
}

func (f *fakeClient) Id() string { return f.id }

func (f *fakeClient) WriteJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg recorded
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) count(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func (f *fakeClient) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (f *fakeClient) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

// last decodes the most recent message of typ into v.
func (f *fakeClient) last(t *testing.T, typ string, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].Type == typ {
			require.NoError(t, json.Unmarshal(f.msgs[i].Data, v))
			return
		}
	}
	t.Fatalf("no %q message received, got %v", typ, f.typesLocked())
}

func (f *fakeClient) typesLocked() []string {
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Type)
	}
	return out
}

type staticBank []internal.Question

func (b staticBank) ListQuestions(context.Context) ([]internal.Question, error) {
	return b, nil
}

func testQuestion(id string, correct, seconds int) internal.Question {
	return internal.Question{
		Id:           id,
		Text:         "Question " + id,
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: correct,
		Seconds:      seconds,
		Difficulty:   internal.DifficultyMedium,
		Category:     "general",
	}
}

func newTestManager(t *testing.T, bank staticBank, opts Options) (*Manager, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	opts.Clock = mock
	m, err := NewManager(nil, bank, opts)
	require.NoError(t, err)
	return m, mock
}

// createGame opens a room and returns its pin and host token.
func createGame(t *testing.T, m *Manager, host *fakeClient) (string, string) {
	t.Helper()
	require.NoError(t, m.CreateGame(context.Background(), host, internal.CreateGameData{}))
	var created internal.GameCreatedData
	host.last(t, internal.MsgGameCreated, &created)
	return created.Pin, created.HostToken
}

func joinGame(t *testing.T, m *Manager, pin, name string) (*fakeClient, internal.JoinedData) {
	t.Helper()
	c := newFakeClient("player-" + name)
	require.NoError(t, m.JoinGame(context.Background(), c, internal.JoinGameData{Pin: pin, PlayerName: name}))
	var joined internal.JoinedData
	c.last(t, internal.MsgJoined, &joined)
	return c, joined
}

func answer(t *testing.T, m *Manager, c *fakeClient, pin string, idx int) error {
	t.Helper()
	return m.SubmitAnswer(context.Background(), c, internal.SubmitAnswerData{Pin: pin, AnswerIndex: &idx})
}

func roomPhase(m *Manager, pin string) internal.GamePhase {
	room, err := m.getRoom(pin)
	if err != nil {
		return ""
	}
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.Phase
}
