package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizdash/quizdash-backend/internal/engine"
	"github.com/quizdash/quizdash-backend/internal/quiz"
	"github.com/quizdash/quizdash-backend/internal/roster"
	"github.com/quizdash/quizdash-backend/internal/types"
)

// timeoutGrace pads the question timer past the answer deadline so a
// submission racing the deadline is judged by the engine's clock check,
// not by goroutine scheduling.
const timeoutGrace = 250 * time.Millisecond

type Msg interface{ isSessionMsg() }

// Join subscribes a player connection and adds it to the roster. Reply
// receives the assigned display name, or "" if the join was not accepted.
type Join struct {
	ConnID string
	Name   string
	Outbox chan types.ServerMessage
	Reply  chan string
}

func (Join) isSessionMsg() {}

// Leave handles a player disconnect.
type Leave struct{ ConnID string }

func (Leave) isSessionMsg() {}

// Start carries the host's question list. Reply receives the validation
// error, nil on success.
type Start struct {
	Questions []quiz.Question
	Reply     chan error
}

func (Start) isSessionMsg() {}

type Advance struct{}

func (Advance) isSessionMsg() {}

type End struct{}

func (End) isSessionMsg() {}

type Answer struct {
	ConnID string
	Index  int
}

func (Answer) isSessionMsg() {}

type timerFired struct{ index int }

func (timerFired) isSessionMsg() {}

// GetView reflects internal state without data races; test-only.
type GetView struct {
	Reply chan View
}

func (GetView) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type View struct {
	Phase       engine.Phase
	Index       int
	NumSubs     int
	PlayerCount int
	Standings   []roster.Standing
}

type subscriber struct {
	isHost bool
	outbox chan types.ServerMessage
}

// Session is the actor owning one game. All state mutations happen on the
// loop goroutine; the per-question timer is the only other goroutine and it
// only ever sends a message back into the inbox.
type Session struct {
	Code   string
	HostID string

	inbox  chan Msg
	state  engine.State
	subs   map[string]subscriber
	clock  clockwork.Clock
	timer  *questionTimer
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// questionTimer pairs a one-shot timer with a quit channel; closing quit
// releases the fire goroutine as soon as the timer is stopped.
type questionTimer struct {
	timer clockwork.Timer
	quit  chan struct{}
}

func New(parent context.Context, code, hostID string, hostOutbox chan types.ServerMessage, clock clockwork.Clock, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		Code:   code,
		HostID: hostID,
		inbox:  make(chan Msg, 64),
		state:  engine.NewState(),
		subs:   map[string]subscriber{hostID: {isHost: true, outbox: hostOutbox}},
		clock:  clock,
		log:    log.With(zap.String("code", code)),
		ctx:    ctx,
		cancel: cancel,
	}

	go s.loop()
	return s
}

// Send delivers a message to the session loop. It reports false if the
// session has already shut down, so callers never block on a dead actor.
func (s *Session) Send(m Msg) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Done is closed when the session has shut down. Callers waiting on a
// Reply channel must also select on this.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				events, newState, err := s.apply(engine.Command{
					Type: engine.CmdJoin, PlayerID: msg.ConnID, Name: msg.Name,
				})
				if err != nil {
					if msg.Reply != nil {
						msg.Reply <- ""
					}
					break
				}
				s.state = newState
				s.subs[msg.ConnID] = subscriber{outbox: msg.Outbox}
				if msg.Reply != nil {
					msg.Reply <- events[0].Name
				}
				s.handleEvents(events)

			case Leave:
				delete(s.subs, msg.ConnID)
				events, newState, err := s.apply(engine.Command{
					Type: engine.CmdLeave, PlayerID: msg.ConnID,
				})
				if err != nil {
					break
				}
				s.state = newState
				s.handleEvents(events)

			case Start:
				events, newState, err := s.apply(engine.Command{
					Type: engine.CmdStart, Questions: msg.Questions,
				})
				if msg.Reply != nil {
					msg.Reply <- err
				}
				if err != nil {
					break
				}
				s.state = newState
				s.log.Info("game started", zap.Int("questions", len(newState.Questions)))
				s.handleEvents(events)

			case Answer:
				// Rejections (late, duplicate, unknown player) are dropped
				// without feedback; the originating UI prevents them.
				_, newState, err := s.apply(engine.Command{
					Type: engine.CmdAnswer, PlayerID: msg.ConnID, AnswerIndex: msg.Index,
				})
				if err != nil {
					break
				}
				s.state = newState

			case Advance:
				events, newState, err := s.apply(engine.Command{Type: engine.CmdAdvance})
				if err != nil {
					break
				}
				s.state = newState
				s.handleEvents(events)

			case End:
				events, newState, err := s.apply(engine.Command{Type: engine.CmdEnd})
				if err != nil {
					break
				}
				s.state = newState
				s.handleEvents(events)

			case timerFired:
				events, newState, err := s.apply(engine.Command{
					Type: engine.CmdTimeout, Index: msg.index,
				})
				if err != nil {
					break
				}
				s.state = newState
				s.handleEvents(events)

			case GetView:
				msg.Reply <- View{
					Phase:       s.state.Phase,
					Index:       s.state.Index,
					NumSubs:     len(s.subs),
					PlayerCount: s.state.Players.Len(),
					Standings:   s.state.Players.Standings(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(cmd engine.Command) ([]engine.Event, engine.State, error) {
	cmd.Now = s.clock.Now()
	return engine.Apply(s.state, cmd)
}

func (s *Session) handleEvents(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtLobbyChanged:
			s.broadcast(s.lobbyMessage())

		case engine.EvtQuestionStarted:
			s.armTimer()
			s.broadcast(s.questionMessage())

		case engine.EvtRevealed:
			s.stopTimer()
			s.log.Info("question revealed", zap.Int("index", ev.Reveal.Index))
			s.broadcast(types.ServerMessage{
				Type: types.MsgReveal,
				Reveal: &types.RevealView{
					Index:        ev.Reveal.Index + 1,
					Total:        len(s.state.Questions),
					CorrectIndex: ev.Reveal.CorrectIndex,
					Counts:       ev.Reveal.Counts,
					Leaderboard:  entries(ev.Reveal.Top),
				},
			})
			for id, res := range ev.Reveal.Results {
				s.sendTo(id, types.ServerMessage{
					Type:   types.MsgResult,
					Result: &types.ResultView{Correct: res.Correct, Score: res.Score, Rank: res.Rank},
				})
			}

		case engine.EvtEnded:
			s.stopTimer()
			s.log.Info("game ended")
			s.broadcast(types.ServerMessage{
				Type:     types.MsgGameOver,
				GameOver: &types.GameOverView{Leaderboard: entries(ev.Final)},
			})
		}
	}
}

// armTimer schedules the current question's timeout. The captured index
// travels with the fire message so the engine can detect a stale timer.
func (s *Session) armTimer() {
	s.stopTimer()

	q := s.state.Questions[s.state.Index]
	d := time.Duration(q.TimeLimitSec)*time.Second + timeoutGrace
	qt := &questionTimer{timer: s.clock.NewTimer(d), quit: make(chan struct{})}
	s.timer = qt

	index := s.state.Index
	go func() {
		select {
		case <-qt.timer.Chan():
			select {
			case s.inbox <- timerFired{index: index}:
			case <-qt.quit:
			case <-s.ctx.Done():
			}
		case <-qt.quit:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) stopTimer() {
	if s.timer == nil {
		return
	}
	close(s.timer.quit)
	if !s.timer.timer.Stop() {
		select {
		case <-s.timer.timer.Chan():
		default:
		}
	}
	s.timer = nil
}

func (s *Session) lobbyMessage() types.ServerMessage {
	players := s.state.Players.All()
	views := make([]types.PlayerView, len(players))
	for i, p := range players {
		views[i] = types.PlayerView{ID: p.ID, Name: p.Name, Score: p.Score}
	}
	return types.ServerMessage{
		Type:  types.MsgLobby,
		Lobby: &types.LobbyView{Code: s.Code, Count: len(players), Players: views},
	}
}

func (s *Session) questionMessage() types.ServerMessage {
	q := s.state.Questions[s.state.Index]
	return types.ServerMessage{
		Type: types.MsgQuestion,
		Question: &types.QuestionView{
			Index:            s.state.Index + 1,
			Total:            len(s.state.Questions),
			Prompt:           q.Prompt,
			Options:          q.Options,
			TimeLimitSeconds: q.TimeLimitSec,
			Code:             s.Code,
		},
	}
}

func entries(standings []roster.Standing) []types.EntryView {
	out := make([]types.EntryView, len(standings))
	for i, st := range standings {
		out[i] = types.EntryView{Name: st.Name, Score: st.Score, Rank: st.Rank}
	}
	return out
}

func (s *Session) broadcast(msg types.ServerMessage) {
	for id := range s.subs {
		s.sendTo(id, msg)
	}
}

func (s *Session) sendTo(id string, msg types.ServerMessage) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	select {
	case sub.outbox <- msg:
	default:
		// Subscriber is slow/full - drop them. The connection layer owns
		// the channel, so it is never closed here.
		delete(s.subs, id)
	}
}

func (s *Session) shutdown() {
	s.stopTimer()
	closed := types.ServerMessage{Type: types.MsgSessionClosed}
	for id, sub := range s.subs {
		if !sub.isHost {
			select {
			case sub.outbox <- closed:
			default:
			}
		}
		delete(s.subs, id)
	}
	s.cancel()
}
