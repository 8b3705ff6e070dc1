package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/andevent-backend/internal"
)

// stallingClient blocks its first write until released.
type stallingClient struct {
	*fakeClient
	once    sync.Once
	stalled chan struct{}
	release chan struct{}
}

func newStallingClient(id string) *stallingClient {
	return &stallingClient{
		fakeClient: newFakeClient(id),
		stalled:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (s *stallingClient) WriteJSON(v any) error {
	s.once.Do(func() {
		close(s.stalled)
		<-s.release
	})
	return s.fakeClient.WriteJSON(v)
}

func TestRoomDeliveriesKeepMutationOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, staticBank{testQuestion("q1", 0, 10)}, Options{})

	host := newFakeClient("host")
	pin, _ := createGame(t, m, host)

	ann := newStallingClient("player-Ann")
	annDone := make(chan error, 1)
	go func() {
		annDone <- m.JoinGame(ctx, ann, internal.JoinGameData{Pin: pin, PlayerName: "Ann"})
	}()
	select {
	case <-ann.stalled:
	case <-time.After(2 * time.Second):
		t.Fatal("first delivery never started")
	}

	bo := newFakeClient("player-Bo")
	boDone := make(chan error, 1)
	go func() {
		boDone <- m.JoinGame(ctx, bo, internal.JoinGameData{Pin: pin, PlayerName: "Bo"})
	}()

	assert.Never(t, func() bool { return len(boDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"a later join must not finish while an earlier join is still delivering")

	close(ann.release)
	require.NoError(t, <-annDone)
	require.NoError(t, <-boDone)

	var update internal.RoomUpdateData
	host.last(t, internal.MsgRoomUpdate, &update)
	require.Len(t, update.Players, 2)
	assert.Equal(t, "Ann", update.Players[0].Name)
	assert.Equal(t, "Bo", update.Players[1].Name)

	// Ann's own view ends on the two-player roster too.
	ann.last(t, internal.MsgRoomUpdate, &update)
	assert.Len(t, update.Players, 2)
}

func TestConcurrentSubmissionsAllAccepted(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, staticBank{testQuestion("q1", 2, 20)}, Options{})

	host := newFakeClient("host")
	pin, _ := createGame(t, m, host)

	const players = 30
	clients := make([]*fakeClient, players)
	for i := range players {
		clients[i], _ = joinGame(t, m, pin, fmt.Sprintf("Player%02d", i))
	}
	require.NoError(t, m.StartGame(ctx, host, internal.PinData{Pin: pin}))

	var wg sync.WaitGroup
	errs := make(chan error, players)
	for i, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			choice := 2
			if i%2 == 1 {
				choice = 0
			}
			errs <- m.SubmitAnswer(ctx, c, internal.SubmitAnswerData{Pin: pin, AnswerIndex: &choice})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	for _, c := range clients {
		assert.Equal(t, 1, c.count(internal.MsgAnswerResult), c.Id())
		assert.Equal(t, 1, c.count(internal.MsgLeaderboard), c.Id())
	}
	assert.Equal(t, 1, host.count(internal.MsgLeaderboard))
	assert.Equal(t, internal.PhaseResults, roomPhase(m, pin))

	var board internal.LeaderboardData
	host.last(t, internal.MsgLeaderboard, &board)
	require.Len(t, board.Players, players)
	for _, entry := range board.Players[:players/2] {
		assert.Equal(t, MaxPoints, entry.Score)
	}
	for _, entry := range board.Players[players/2:] {
		assert.Zero(t, entry.Score)
	}
}

// closesOnce runs race against a deadline firing on the mock clock and
// checks the question was closed exactly once.
func closesOnce(t *testing.T, race func(m *Manager, pin string, bo *fakeClient) error) {
	t.Helper()
	ctx := context.Background()
	m, mock := newTestManager(t, staticBank{testQuestion("q1", 0, 10)}, Options{})

	host := newFakeClient("host")
	pin, _ := createGame(t, m, host)
	ann, _ := joinGame(t, m, pin, "Ann")
	bo, _ := joinGame(t, m, pin, "Bo")
	require.NoError(t, m.StartGame(ctx, host, internal.PinData{Pin: pin}))
	require.NoError(t, answer(t, m, ann, pin, 0))

	var wg sync.WaitGroup
	var raceErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		mock.Add(10 * time.Second)
	}()
	go func() {
		defer wg.Done()
		raceErr = race(m, pin, bo)
	}()
	wg.Wait()

	if raceErr != nil {
		assert.ErrorIs(t, raceErr, ErrStateConflict, "only a closed question may reject the racer")
	}
	require.Eventually(t, func() bool {
		return roomPhase(m, pin) == internal.PhaseResults
	}, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return host.count(internal.MsgLeaderboard) > 1 },
		30*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1, host.count(internal.MsgLeaderboard))
	assert.Equal(t, 1, ann.count(internal.MsgLeaderboard))
}

func TestLastAnswerRacesDeadline(t *testing.T) {
	for range 10 {
		closesOnce(t, func(m *Manager, pin string, bo *fakeClient) error {
			choice := 0
			return m.SubmitAnswer(context.Background(), bo, internal.SubmitAnswerData{Pin: pin, AnswerIndex: &choice})
		})
	}
}

func TestDisconnectRacesDeadline(t *testing.T) {
	for range 10 {
		closesOnce(t, func(m *Manager, _ string, bo *fakeClient) error {
			m.Disconnect(bo)
			return nil
		})
	}
}
