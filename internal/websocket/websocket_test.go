package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/game"
)

type questionBank []internal.Question

func (b questionBank) ListQuestions(context.Context) ([]internal.Question, error) {
	return b, nil
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

// expect reads frames until one of typ arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type != typ {
			continue
		}
		if v != nil {
			require.NoError(t, json.Unmarshal(f.Data, v))
		}
		return
	}
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *game.Manager) {
	t.Helper()
	m, err := game.NewManager(nil, questionBank{{
		Id:           "q1",
		Text:         "2 + 2?",
		Options:      []string{"3", "4", "5", "22"},
		CorrectIndex: 1,
		Seconds:      20,
		Difficulty:   internal.DifficultyEasy,
		Category:     "math",
	}}, game.Options{})
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(m, nil, opts))
	t.Cleanup(srv.Close)
	return srv, m
}

func TestWebsocketGame(t *testing.T) {
	srv, m := newTestServer(t, Options{})

	host := dial(t, srv)
	send(t, host, internal.MsgCreateGame, nil)
	var created internal.GameCreatedData
	expect(t, host, internal.MsgGameCreated, &created)
	require.NotEmpty(t, created.Pin)

	player := dial(t, srv)
	send(t, player, internal.MsgJoinGame, internal.JoinGameData{Pin: created.Pin, PlayerName: "Ann"})
	var joined internal.JoinedData
	expect(t, player, internal.MsgJoined, &joined)
	assert.Equal(t, "Ann", joined.PlayerName)

	send(t, host, internal.MsgStartGame, internal.PinData{Pin: created.Pin})
	var q internal.NewQuestionData
	expect(t, player, internal.MsgNewQuestion, &q)
	assert.Equal(t, "2 + 2?", q.Text)

	send(t, player, internal.MsgSubmitAnswer, map[string]any{"pin": created.Pin, "answerIndex": 1})
	var result internal.AnswerResultData
	expect(t, player, internal.MsgAnswerResult, &result)
	assert.True(t, result.IsCorrect)
	assert.GreaterOrEqual(t, result.Points, game.MinPoints)

	var board internal.LeaderboardData
	expect(t, host, internal.MsgLeaderboard, &board)
	require.Len(t, board.Players, 1)
	assert.Equal(t, result.Points, board.Players[0].Score)

	// Closing the player's socket marks them disconnected.
	require.NoError(t, player.Close())
	require.Eventually(t, func() bool {
		lb, err := m.Leaderboard(created.Pin)
		return err == nil && len(lb.Players) == 1 && !lb.Players[0].Connected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	conn := dial(t, srv)

	send(t, conn, internal.MsgPing, nil)
	expect(t, conn, internal.MsgPong, nil)

	send(t, conn, internal.MsgJoinGame, internal.JoinGameData{Pin: "NOSUCH", PlayerName: "Ann"})
	var errData internal.ErrorData
	expect(t, conn, internal.MsgJoinError, &errData)
	assert.Equal(t, string(game.KindNotFound), errData.Kind)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("nope")))
	expect(t, conn, internal.MsgError, &errData)
	assert.Equal(t, string(game.KindValidation), errData.Kind)
}

func TestWebsocketRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1})
	conn := dial(t, srv)

	send(t, conn, internal.MsgPing, nil)
	send(t, conn, internal.MsgPing, nil)

	expect(t, conn, internal.MsgPong, nil)
	var errData internal.ErrorData
	expect(t, conn, internal.MsgError, &errData)
	assert.Equal(t, "rate_limited", errData.Kind)
}
