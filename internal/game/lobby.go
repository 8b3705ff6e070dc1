package game

import (
	"context"
	"strings"
	"time"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/utils"
)

// =============================================================================
// GAME FLOW - LOBBY & INITIALIZATION
// =============================================================================

// CreateGame loads the question sequence once, opens a lobby and binds the
// caller as its host.
func (m *Manager) CreateGame(ctx context.Context, c Client, req internal.CreateGameData) error {
	if sess, ok := m.registry.Lookup(c.Id()); ok {
		return conflictError("connection is already in game %s", sess.Pin)
	}
	if req.Limit < 0 {
		return validationError("limit must not be negative")
	}

	bank, err := m.bank.ListQuestions(ctx)
	if err != nil {
		m.logger.Error("[CreateGame] loading questions failed", "error", err)
		return internalError("question bank unavailable")
	}
	questions := selectQuestions(bank, req)
	if len(questions) == 0 {
		return validationError("no questions available for this game")
	}

	room, err := m.addRoom(questions)
	if err != nil {
		return err
	}

	token, err := m.tokens.Issue(room.Pin, internal.RoleHost, room.HostId)
	if err != nil {
		m.removeRoom(room.Pin)
		m.logger.Error("[CreateGame] issuing host token failed", "error", err)
		return internalError("could not create game")
	}

	err = m.mutate(room, func(out *outbox) error {
		if err := m.registry.Bind(c, room.Pin, internal.RoleHost, room.HostId); err != nil {
			return err
		}
		out.toClient(c, envelope(internal.MsgGameCreated, internal.GameCreatedData{
			Pin:            room.Pin,
			HostToken:      token,
			TotalQuestions: len(room.Questions),
		}))
		roomUpdate(room, out)
		return nil
	})
	if err != nil {
		m.removeRoom(room.Pin)
		return err
	}

	m.logger.Info("[CreateGame] game created", "pin", room.Pin, "questions", len(questions))
	return nil
}

// selectQuestions applies the optional id list, category and limit. The
// result is a deep copy, so the room's sequence is immutable.
func selectQuestions(bank []internal.Question, req internal.CreateGameData) []internal.Question {
	var picked []internal.Question

	if len(req.QuestionIds) > 0 {
		byId := make(map[string]internal.Question, len(bank))
		for _, q := range bank {
			byId[q.Id] = q
		}
		for _, id := range req.QuestionIds {
			if q, ok := byId[id]; ok {
				picked = append(picked, q)
			}
		}
	} else {
		picked = bank
	}

	questions := make([]internal.Question, 0, len(picked))
	for _, q := range picked {
		if req.Category != "" && !strings.EqualFold(q.Category, strings.TrimSpace(req.Category)) {
			continue
		}
		if q.Validate() != nil {
			continue
		}
		questions = append(questions, q.Clone())
		if req.Limit > 0 && len(questions) == req.Limit {
			break
		}
	}
	return questions
}

// JoinGame adds a named player to a room.
func (m *Manager) JoinGame(ctx context.Context, c Client, req internal.JoinGameData) error {
	name := utils.NormalizeName(req.PlayerName)
	if !utils.ValidName(name) {
		return validationError("name must be between %d and %d characters", internal.MinNameLength, internal.MaxNameLength)
	}
	if sess, ok := m.registry.Lookup(c.Id()); ok {
		return conflictError("connection is already in game %s", sess.Pin)
	}

	room, err := m.getRoom(req.Pin)
	if err != nil {
		return err
	}

	return m.mutate(room, func(out *outbox) error {
		switch {
		case room.Phase == internal.PhaseEnded:
			return notFoundError("game %s has ended", room.Pin)
		case room.Phase != internal.PhaseLobby && !m.opts.AllowLateJoin:
			return conflictError("game %s has already started", room.Pin)
		case len(room.Players) >= m.opts.MaxPlayersPerRoom:
			return conflictError("game %s is full", room.Pin)
		case room.NameTaken(name):
			return validationError("name %q is already taken", name)
		}

		player := &internal.Player{
			Id:        utils.GenerateId(),
			Name:      name,
			JoinedAt:  m.clock.Now(),
			Connected: true,
		}
		token, err := m.tokens.Issue(room.Pin, internal.RolePlayer, player.Id)
		if err != nil {
			m.logger.Error("[JoinGame] issuing player token failed", "pin", room.Pin, "error", err)
			return internalError("could not join game")
		}
		if err := m.registry.Bind(c, room.Pin, internal.RolePlayer, player.Id); err != nil {
			return err
		}

		room.Players[player.Id] = player
		room.PlayerOrder = append(room.PlayerOrder, player.Id)
		room.LastActivity = m.clock.Now()

		out.toClient(c, envelope(internal.MsgJoined, internal.JoinedData{
			Pin:         room.Pin,
			PlayerId:    player.Id,
			PlayerName:  player.Name,
			PlayerToken: token,
		}))
		roomUpdate(room, out)
		m.catchUp(room, player, c, out)

		m.logger.Info("[JoinGame] player joined",
			"pin", room.Pin, "player", player.Id, "name", player.Name, "players", len(room.Players))
		return nil
	})
}

// RejoinGame restores a disconnected player, score included.
func (m *Manager) RejoinGame(ctx context.Context, c Client, req internal.RejoinGameData) error {
	if sess, ok := m.registry.Lookup(c.Id()); ok {
		return conflictError("connection is already in game %s", sess.Pin)
	}
	room, err := m.getRoom(req.Pin)
	if err != nil {
		return err
	}
	claims, err := m.tokens.Verify(req.PlayerToken, room.Pin, internal.RolePlayer)
	if err != nil {
		return authorizationError("invalid player token")
	}

	return m.mutate(room, func(out *outbox) error {
		if room.Phase == internal.PhaseEnded {
			return notFoundError("game %s has ended", room.Pin)
		}
		player := room.Players[claims.Subject]
		if player == nil {
			return notFoundError("player is no longer in game %s", room.Pin)
		}
		if player.Connected {
			return conflictError("player %s is already connected", player.Name)
		}
		if err := m.registry.Bind(c, room.Pin, internal.RolePlayer, player.Id); err != nil {
			return err
		}

		player.Connected = true
		room.LastActivity = m.clock.Now()

		out.toClient(c, envelope(internal.MsgJoined, internal.JoinedData{
			Pin:         room.Pin,
			PlayerId:    player.Id,
			PlayerName:  player.Name,
			PlayerToken: req.PlayerToken,
			Score:       player.Score,
		}))
		roomUpdate(room, out)
		m.catchUp(room, player, c, out)

		m.logger.Info("[RejoinGame] player reconnected", "pin", room.Pin, "player", player.Id, "score", player.Score)
		return nil
	})
}

// catchUp sends a (re)joining player whatever is on screen right now.
func (m *Manager) catchUp(room *internal.Room, player *internal.Player, c Client, out *outbox) {
	switch room.Phase {
	case internal.PhaseQuestion:
		if !player.HasAnswered(room.QuestionIndex) {
			out.toClient(c, envelope(internal.MsgNewQuestion, newQuestionData(room)))
		}
		answerCount(room, out)
	case internal.PhaseResults:
		out.toClient(c, envelope(internal.MsgLeaderboard, leaderboardData(room, nil)))
	}
}

// ReclaimHost binds a new connection as the host of a room whose host
// connection dropped.
func (m *Manager) ReclaimHost(ctx context.Context, c Client, req internal.ReclaimHostData) error {
	if sess, ok := m.registry.Lookup(c.Id()); ok {
		return conflictError("connection is already in game %s", sess.Pin)
	}
	room, err := m.getRoom(req.Pin)
	if err != nil {
		return err
	}
	claims, err := m.tokens.Verify(req.HostToken, room.Pin, internal.RoleHost)
	if err != nil {
		return authorizationError("invalid host token")
	}

	return m.mutate(room, func(out *outbox) error {
		if room.Phase == internal.PhaseEnded {
			return notFoundError("game %s has ended", room.Pin)
		}
		if claims.Subject != room.HostId {
			return authorizationError("invalid host token")
		}
		if room.HostConnected {
			return conflictError("host is already connected")
		}
		if err := m.registry.Bind(c, room.Pin, internal.RoleHost, room.HostId); err != nil {
			return err
		}

		room.HostConnected = true
		room.HostLeftAt = time.Time{}
		room.LastActivity = m.clock.Now()

		out.toClient(c, envelope(internal.MsgHostReclaimed, room.Snapshot()))
		roomUpdate(room, out)
		switch room.Phase {
		case internal.PhaseQuestion:
			out.toClient(c, envelope(internal.MsgNewQuestion, newQuestionData(room)))
			answerCount(room, out)
		case internal.PhaseResults:
			out.toClient(c, envelope(internal.MsgLeaderboard, leaderboardData(room, nil)))
		}

		m.logger.Info("[ReclaimHost] host reconnected", "pin", room.Pin)
		return nil
	})
}

// StartGame opens the first question.
func (m *Manager) StartGame(ctx context.Context, c Client, req internal.PinData) error {
	room, err := m.hostRoom(c, req.Pin, "start the game")
	if err != nil {
		return err
	}

	return m.mutate(room, func(out *outbox) error {
		if room.Phase != internal.PhaseLobby {
			return conflictError("game has already started")
		}
		if room.GetPlayerCount() == 0 {
			return conflictError("cannot start a game without players")
		}
		if len(room.Questions) == 0 {
			return conflictError("game has no questions")
		}

		m.logger.Info("[StartGame] starting game", "pin", room.Pin, "players", room.GetPlayerCount())
		m.openQuestion(room, 0, out)
		return nil
	})
}

// hostRoom resolves the room and checks that c is bound to it as host.
func (m *Manager) hostRoom(c Client, pin, action string) (*internal.Room, error) {
	room, err := m.getRoom(pin)
	if err != nil {
		return nil, err
	}
	sess, ok := m.registry.Lookup(c.Id())
	if !ok || sess.Role != internal.RoleHost || sess.Pin != room.Pin {
		return nil, authorizationError("only the host can %s", action)
	}
	return room, nil
}
