package game

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/utils"
)

const (
	DefaultMaxPlayersPerRoom = 50
	DefaultHostGrace         = 2 * time.Minute
	DefaultIdleTimeout       = 10 * time.Minute
	DefaultEndedRetention    = 5 * time.Minute
	DefaultJanitorInterval   = 15 * time.Second
	DefaultArchiveTimeout    = 5 * time.Second

	pinAttempts = 32
)

// QuestionBank is the read side of the question store.
type QuestionBank interface {
	ListQuestions(ctx context.Context) ([]internal.Question, error)
}

// ResultSink receives the summary of every finished game.
type ResultSink func(ctx context.Context, summary internal.GameSummary) error

type Options struct {
	MaxPlayersPerRoom int
	AllowLateJoin     bool
	HostGrace         time.Duration
	IdleTimeout       time.Duration
	EndedRetention    time.Duration
	JanitorInterval   time.Duration
	ArchiveTimeout    time.Duration

	Clock  clock.Clock
	Tokens *TokenIssuer
	Sinks  map[string]ResultSink
}

func (o *Options) withDefaults() {
	if o.MaxPlayersPerRoom <= 0 {
		o.MaxPlayersPerRoom = DefaultMaxPlayersPerRoom
	}
	if o.HostGrace <= 0 {
		o.HostGrace = DefaultHostGrace
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.EndedRetention <= 0 {
		o.EndedRetention = DefaultEndedRetention
	}
	if o.JanitorInterval <= 0 {
		o.JanitorInterval = DefaultJanitorInterval
	}
	if o.ArchiveTimeout <= 0 {
		o.ArchiveTimeout = DefaultArchiveTimeout
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}

// Manager owns every live room. Lock order is Manager.mu, then room.Mu,
// then room.SendMu, then the registry; never the reverse.
type Manager struct {
	opts     Options
	clock    clock.Clock
	logger   *slog.Logger
	bank     QuestionBank
	tokens   *TokenIssuer
	registry *Registry
	routes   map[string]route

	mu    sync.RWMutex
	rooms map[string]*internal.Room

	archives sync.WaitGroup
}

func NewManager(logger *slog.Logger, bank QuestionBank, opts Options) (*Manager, error) {
	opts.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Tokens == nil {
		tokens, err := NewTokenIssuer("", DefaultTokenTTL)
		if err != nil {
			return nil, err
		}
		opts.Tokens = tokens
	}

	m := &Manager{
		opts:     opts,
		clock:    opts.Clock,
		logger:   logger.With("component", "game"),
		bank:     bank,
		tokens:   opts.Tokens,
		registry: NewRegistry(),
		rooms:    make(map[string]*internal.Room),
	}
	m.routes = m.buildRoutes()
	return m, nil
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// getRoom resolves a PIN as typed by a user.
func (m *Manager) getRoom(pin string) (*internal.Room, error) {
	pin = utils.NormalizePin(pin)
	if pin == "" {
		return nil, validationError("pin is required")
	}

	m.mu.RLock()
	room, ok := m.rooms[pin]
	m.mu.RUnlock()
	if !ok {
		return nil, notFoundError("game %s not found", pin)
	}
	return room, nil
}

// addRoom registers a fresh lobby under a PIN no other held room uses.
func (m *Manager) addRoom(questions []internal.Question) (*internal.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range pinAttempts {
		pin := utils.GeneratePIN()
		if _, exists := m.rooms[pin]; exists {
			continue
		}

		now := m.clock.Now()
		room := &internal.Room{
			Pin:           pin,
			Phase:         internal.PhaseLobby,
			Players:       make(map[string]*internal.Player),
			PlayerOrder:   make([]string, 0),
			Questions:     questions,
			QuestionIndex: -1,
			HostId:        utils.GenerateId(),
			HostConnected: true,
			CreatedAt:     now,
			LastActivity:  now,
		}
		m.rooms[pin] = room
		return room, nil
	}

	return nil, internalError("could not allocate a unique pin")
}

// removeRoom forgets a room and every connection bound to it.
func (m *Manager) removeRoom(pin string) {
	m.mu.Lock()
	room, ok := m.rooms[pin]
	delete(m.rooms, pin)
	m.mu.Unlock()
	if !ok {
		return
	}

	room.Mu.Lock()
	m.cancelDeadline(room)
	room.Mu.Unlock()

	dropped := m.registry.UnbindRoom(pin)
	m.logger.Info("[removeRoom] room reclaimed", "pin", pin, "sessions_dropped", dropped)
}

func (m *Manager) listRooms() []*internal.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]*internal.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// mutate runs fn under the room lock and delivers whatever it queued once
// the lock is released. The send lock is acquired before the room lock is
// dropped, so a later mutation cannot overtake this one's messages. The
// deferred unlocks keep a panicking handler from wedging the room.
func (m *Manager) mutate(room *internal.Room, fn func(out *outbox) error) error {
	out := &outbox{}
	err := func() error {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		err := fn(out)
		room.SendMu.Lock()
		return err
	}()
	defer room.SendMu.Unlock()

	m.flush(out)
	return err
}

// Shutdown stops every deadline timer and waits for pending archives.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, room := range m.listRooms() {
		room.Mu.Lock()
		m.cancelDeadline(room)
		room.Mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		m.archives.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
