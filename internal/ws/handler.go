package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizdash/quizdash-backend/internal/hub"
	"github.com/quizdash/quizdash-backend/internal/session"
	"github.com/quizdash/quizdash-backend/internal/types"
)

// client is the per-connection state. id is the connection identity used
// as the roster key; hostCapable is fixed at upgrade time by the Gate.
type client struct {
	id          string
	hostCapable bool
	isHost      bool
	joined      bool
	sess        *session.Session
	outbox      chan types.ServerMessage
	hub         *hub.Hub
	log         *zap.Logger
}

func Handler(h *hub.Hub, gate *Gate, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			id:          uuid.NewString(),
			hostCapable: gate.HostCapable(r.URL.Query().Get("secret")),
			outbox:      make(chan types.ServerMessage, 16),
			hub:         h,
			log:         log,
		}

		// Host disconnect destroys the session; player disconnect only
		// updates the roster.
		defer func() {
			switch {
			case c.isHost:
				h.Inbox() <- hub.RemoveByHost{HostID: c.id}
			case c.joined && c.sess != nil:
				c.sess.Send(session.Leave{ConnID: c.id})
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg := <-c.outbox:
					payload, _ := json.Marshal(msg)
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close, going-away, or a dead peer: teardown handles
				// the rest via the deferred disconnect.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				c.sendError("bad json")
				continue
			}
			c.handle(cm)
		}
	}
}

func (c *client) handle(m types.ClientMessage) {
	switch m.Type {
	case types.ActionCreate:
		if !c.hostCapable {
			c.sendError("host credential required")
			return
		}
		if c.sess != nil {
			c.sendError("connection already bound to a session")
			return
		}
		reply := make(chan *session.Session, 1)
		c.hub.Inbox() <- hub.CreateSession{HostID: c.id, HostOutbox: c.outbox, Reply: reply}
		sess := <-reply
		if sess == nil {
			c.sendError("failed to create session")
			return
		}
		c.sess = sess
		c.isHost = true
		c.send(types.ServerMessage{Type: types.MsgSessionCreated, Code: sess.Code})

	case types.ActionJoin:
		if c.sess != nil {
			return
		}
		reply := make(chan *session.Session, 1)
		c.hub.Inbox() <- hub.GetSession{Code: m.Code, Reply: reply}
		sess := <-reply
		if sess == nil {
			c.sendError("session not found")
			return
		}
		nameReply := make(chan string, 1)
		if !sess.Send(session.Join{ConnID: c.id, Name: m.Name, Outbox: c.outbox, Reply: nameReply}) {
			c.sendError("session not found")
			return
		}
		select {
		case name := <-nameReply:
			if name == "" {
				// Game already started; the join was not accepted.
				return
			}
		case <-sess.Done():
			c.sendError("session not found")
			return
		}
		c.sess = sess
		c.joined = true

	case types.ActionStart:
		if !c.requireHost() {
			return
		}
		reply := make(chan error, 1)
		if !c.sess.Send(session.Start{Questions: m.Questions, Reply: reply}) {
			return
		}
		select {
		case err := <-reply:
			if err != nil {
				c.sendError(err.Error())
			}
		case <-c.sess.Done():
		}

	case types.ActionAdvance:
		if !c.requireHost() {
			return
		}
		c.sess.Send(session.Advance{})

	case types.ActionEnd:
		if !c.requireHost() {
			return
		}
		c.sess.Send(session.End{})

	case types.ActionAnswer:
		if c.sess == nil || !c.joined {
			return
		}
		c.sess.Send(session.Answer{ConnID: c.id, Index: m.Index})

	default:
		c.sendError("unknown message type")
	}
}

// requireHost enforces the credential check first, then session binding.
// Ownership is structural: host commands only ever target the session this
// connection created.
func (c *client) requireHost() bool {
	if !c.hostCapable {
		c.sendError("host credential required")
		return false
	}
	if !c.isHost || c.sess == nil {
		c.sendError("no session owned by this connection")
		return false
	}
	return true
}

func (c *client) send(msg types.ServerMessage) {
	select {
	case c.outbox <- msg:
	default:
		c.log.Warn("outbox full, dropping message", zap.String("conn", c.id))
	}
}

func (c *client) sendError(msg string) {
	c.send(types.ServerMessage{Type: types.MsgError, Error: msg})
}
