package hub

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizdash/quizdash-backend/internal/joincode"
	"github.com/quizdash/quizdash-backend/internal/session"
	"github.com/quizdash/quizdash-backend/internal/types"
)

type HubMsg interface{ isHubMsg() }

// CreateSession makes a new session owned by the given host connection and
// replies with it. Code generation and the collision check happen inside
// the hub loop, so check-and-insert is one step.
type CreateSession struct {
	HostID     string
	HostOutbox chan types.ServerMessage
	Reply      chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

// RemoveByHost destroys the session owned by a host connection; used on
// host disconnect.
type RemoveByHost struct {
	HostID string
}

type RemoveByCode struct {
	Code string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveByHost) isHubMsg()  {}
func (RemoveByCode) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}

// Hub is the process-wide registry of active sessions, keyed by join code.
// It is constructor-injected wherever needed; there is no package-level
// instance.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	byHost   map[string]string // host connection id -> code
	clock    clockwork.Clock
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, clock clockwork.Clock, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		byHost:   make(map[string]string),
		clock:    clock,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				// A host recreating replaces its previous session.
				h.removeByHost(msg.HostID)

				code, ok := h.freshCode()
				if !ok {
					msg.Reply <- nil
					break
				}
				sess := session.New(h.ctx, code, msg.HostID, msg.HostOutbox, h.clock, h.log)
				h.sessions[code] = sess
				h.byHost[msg.HostID] = code
				h.log.Info("session created", zap.String("code", code))
				msg.Reply <- sess

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case RemoveByHost:
				h.removeByHost(msg.HostID)

			case RemoveByCode:
				if sess := h.sessions[msg.Code]; sess != nil {
					h.remove(sess)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) freshCode() (string, bool) {
	for attempts := 0; attempts < 100; attempts++ {
		code, err := joincode.Generate()
		if err != nil {
			h.log.Error("join code generation failed", zap.Error(err))
			return "", false
		}
		if _, taken := h.sessions[code]; !taken {
			return code, true
		}
		h.log.Debug("join code collision, re-rolling", zap.String("code", code))
	}
	return "", false
}

func (h *Hub) removeByHost(hostID string) {
	code, ok := h.byHost[hostID]
	if !ok {
		return
	}
	if sess := h.sessions[code]; sess != nil {
		h.remove(sess)
	}
}

func (h *Hub) remove(sess *session.Session) {
	sess.Send(session.Shutdown{})
	delete(h.sessions, sess.Code)
	delete(h.byHost, sess.HostID)
	h.log.Info("session removed", zap.String("code", sess.Code))
}

func (h *Hub) shutdown() {
	for _, sess := range h.sessions {
		sess.Send(session.Shutdown{})
	}
	clear(h.sessions)
	clear(h.byHost)
	h.cancel()
}
