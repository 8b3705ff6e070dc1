package game

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/scythe504/andevent-backend/internal"
)

// =============================================================================
// MESSAGE ROUTING
// =============================================================================

type handlerFunc func(ctx context.Context, c Client, data json.RawMessage) error

// route pairs a handler with the event its failures are reported as.
type route struct {
	errType string
	handle  handlerFunc
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// bind adapts a typed handler to the raw route signature.
func bind[T any](fn func(context.Context, Client, T) error) handlerFunc {
	return func(ctx context.Context, c Client, data json.RawMessage) error {
		var req T
		if len(data) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			if err := json.Unmarshal(data, &req); err != nil {
				return validationError("malformed payload")
			}
		}
		return fn(ctx, c, req)
	}
}

func (m *Manager) buildRoutes() map[string]route {
	return map[string]route{
		internal.MsgCreateGame:   {internal.MsgHostError, bind(m.CreateGame)},
		internal.MsgReclaimHost:  {internal.MsgHostError, bind(m.ReclaimHost)},
		internal.MsgStartGame:    {internal.MsgHostError, bind(m.StartGame)},
		internal.MsgNextQuestion: {internal.MsgHostError, bind(m.NextQuestion)},
		internal.MsgEndGame:      {internal.MsgHostError, bind(m.EndGame)},
		internal.MsgJoinGame:     {internal.MsgJoinError, bind(m.JoinGame)},
		internal.MsgRejoinGame:   {internal.MsgJoinError, bind(m.RejoinGame)},
		internal.MsgSubmitAnswer: {internal.MsgPlayerError, bind(m.SubmitAnswer)},
		internal.MsgPing:         {internal.MsgError, m.ping},
	}
}

func (m *Manager) ping(ctx context.Context, c Client, _ json.RawMessage) error {
	m.send(c, envelope(internal.MsgPong, struct{}{}))
	return nil
}

// HandleMessage decodes one inbound frame and runs its handler. Failures
// go back to the sender only; a panicking handler is logged and reported
// as an internal error without affecting other rooms.
func (m *Manager) HandleMessage(ctx context.Context, c Client, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.replyError(c, internal.MsgError, validationError("message is not valid JSON"))
		return
	}

	r, ok := m.routes[msg.Type]
	if !ok {
		m.replyError(c, internal.MsgError, validationError("unknown message type %q", msg.Type))
		return
	}

	if err := m.safely(msg.Type, func() error { return r.handle(ctx, c, msg.Data) }); err != nil {
		m.logger.Debug("[HandleMessage] request rejected",
			"client", c.Id(), "type", msg.Type, "kind", KindOf(err), "error", err)
		m.replyError(c, r.errType, err)
	}
}

func (m *Manager) safely(typ string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("[HandleMessage] handler panicked", "type", typ, "panic", fmt.Sprint(rec))
			err = internalError("internal error")
		}
	}()
	return fn()
}

func (m *Manager) replyError(c Client, errType string, err error) {
	m.send(c, envelope(errType, internal.ErrorData{
		Message: publicMessage(err),
		Kind:    string(KindOf(err)),
	}))
}
