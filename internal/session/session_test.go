package session

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizdash/quizdash-backend/internal/engine"
	"github.com/quizdash/quizdash-backend/internal/quiz"
	"github.com/quizdash/quizdash-backend/internal/types"
)

func oneQuestion(limitSec int) []quiz.Question {
	return []quiz.Question{{
		Prompt:       "2+2?",
		Options:      []string{"3", "4", "5", "6"},
		CorrectIndex: 1,
		TimeLimitSec: limitSec,
	}}
}

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("expected no message within %v, but got: %+v", within, msg)
	case <-time.After(within):
		// good: nothing arrived
	}
}

func recvView(t *testing.T, s *Session) View {
	t.Helper()
	reply := make(chan View, 1)
	s.Send(GetView{Reply: reply})
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func newTestSession(t *testing.T) (*Session, chan types.ServerMessage, *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClock()
	hostOut := make(chan types.ServerMessage, 16)
	s := New(ctx, "482913", "host-1", hostOut, clock, zap.NewNop())
	return s, hostOut, clock
}

func join(t *testing.T, s *Session, id, name string) chan types.ServerMessage {
	t.Helper()
	out := make(chan types.ServerMessage, 16)
	reply := make(chan string, 1)
	s.Send(Join{ConnID: id, Name: name, Outbox: out, Reply: reply})
	select {
	case assigned := <-reply:
		if assigned == "" {
			t.Fatalf("join rejected for %s", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out joining %s", id)
	}
	return out
}

func TestSession_JoinBroadcastsLobby(t *testing.T) {
	s, hostOut, _ := newTestSession(t)

	playerOut := join(t, s, "p1", "Sam")

	for _, ch := range []chan types.ServerMessage{hostOut, playerOut} {
		msg := recvMsg(t, ch, time.Second)
		if msg.Type != types.MsgLobby {
			t.Fatalf("want Lobby, got %s", msg.Type)
		}
		if msg.Lobby.Count != 1 || msg.Lobby.Code != "482913" {
			t.Fatalf("lobby view: %+v", msg.Lobby)
		}
		if msg.Lobby.Players[0].Name != "Sam" {
			t.Fatalf("player name: %+v", msg.Lobby.Players)
		}
	}
}

func TestSession_DuplicateNamesSuffixed(t *testing.T) {
	s, _, _ := newTestSession(t)

	join(t, s, "p1", "Sam")
	out := make(chan types.ServerMessage, 16)
	reply := make(chan string, 1)
	s.Send(Join{ConnID: "p2", Name: "sam", Outbox: out, Reply: reply})

	if assigned := <-reply; assigned != "Sam #2" {
		t.Fatalf("want Sam #2, got %q", assigned)
	}
}

func TestSession_StartThenTimeoutReveals(t *testing.T) {
	s, hostOut, clock := newTestSession(t)

	playerOut := join(t, s, "p1", "Sam")
	recvMsg(t, hostOut, time.Second)   // lobby
	recvMsg(t, playerOut, time.Second) // lobby

	errReply := make(chan error, 1)
	s.Send(Start{Questions: oneQuestion(10), Reply: errReply})
	if err := <-errReply; err != nil {
		t.Fatalf("start: %v", err)
	}

	// Both sides see the question; receiving it also guarantees the
	// timer has been armed.
	q := recvMsg(t, hostOut, time.Second)
	if q.Type != types.MsgQuestion || q.Question.Index != 1 || q.Question.Total != 1 {
		t.Fatalf("host question frame: %+v", q)
	}
	recvMsg(t, playerOut, time.Second)

	s.Send(Answer{ConnID: "p1", Index: 1})
	// The view roundtrip sits behind the answer in the inbox, so once it
	// returns the answer has been stamped at the current fake time.
	recvView(t, s)

	clock.Advance(10*time.Second + timeoutGrace)

	reveal := recvMsg(t, hostOut, time.Second)
	if reveal.Type != types.MsgReveal {
		t.Fatalf("want Reveal, got %s", reveal.Type)
	}
	if reveal.Reveal.CorrectIndex != 1 || reveal.Reveal.Counts != [4]int{0, 1, 0, 0} {
		t.Fatalf("reveal payload: %+v", reveal.Reveal)
	}

	// The player gets the broadcast plus an individual result.
	playerReveal := recvMsg(t, playerOut, time.Second)
	if playerReveal.Type != types.MsgReveal {
		t.Fatalf("want Reveal, got %s", playerReveal.Type)
	}
	result := recvMsg(t, playerOut, time.Second)
	if result.Type != types.MsgResult {
		t.Fatalf("want Result, got %s", result.Type)
	}
	if !result.Result.Correct || result.Result.Score != 1500 || result.Result.Rank != 1 {
		t.Fatalf("player result: %+v", result.Result)
	}
}

func TestSession_StartValidationErrorSurfaced(t *testing.T) {
	s, hostOut, _ := newTestSession(t)

	errReply := make(chan error, 1)
	s.Send(Start{Questions: nil, Reply: errReply})
	if err := <-errReply; err == nil {
		t.Fatalf("expected validation error")
	}

	recvNoMsg(t, hostOut, 100*time.Millisecond)
	if v := recvView(t, s); v.Phase != engine.PhaseLobby {
		t.Fatalf("session must stay in lobby, got %v", v.Phase)
	}
}

func TestSession_StaleTimerAfterHostEnd(t *testing.T) {
	s, hostOut, clock := newTestSession(t)

	errReply := make(chan error, 1)
	s.Send(Start{Questions: oneQuestion(5), Reply: errReply})
	if err := <-errReply; err != nil {
		t.Fatalf("start: %v", err)
	}
	recvMsg(t, hostOut, time.Second) // question

	s.Send(End{})
	over := recvMsg(t, hostOut, time.Second)
	if over.Type != types.MsgGameOver {
		t.Fatalf("want GameOver, got %s", over.Type)
	}

	// The armed timeout fires into a dead question; nothing may follow.
	clock.Advance(time.Minute)
	recvNoMsg(t, hostOut, 200*time.Millisecond)

	if v := recvView(t, s); v.Phase != engine.PhaseEnded {
		t.Fatalf("want ended, got %v", v.Phase)
	}
}

func TestSession_AdvanceDuringQuestionIgnored(t *testing.T) {
	s, hostOut, _ := newTestSession(t)

	errReply := make(chan error, 1)
	s.Send(Start{Questions: oneQuestion(30), Reply: errReply})
	if err := <-errReply; err != nil {
		t.Fatalf("start: %v", err)
	}
	recvMsg(t, hostOut, time.Second) // question

	s.Send(Advance{})
	recvNoMsg(t, hostOut, 200*time.Millisecond)

	v := recvView(t, s)
	if v.Phase != engine.PhaseQuestion || v.Index != 0 {
		t.Fatalf("advance during question changed state: %+v", v)
	}
}

func TestSession_SlowSubscriberDropped(t *testing.T) {
	s, _, _ := newTestSession(t)

	slow := make(chan types.ServerMessage, 1)
	reply := make(chan string, 1)
	s.Send(Join{ConnID: "p1", Name: "Slow", Outbox: slow, Reply: reply})
	<-reply
	// slow's buffer now holds the lobby broadcast and is full.

	join(t, s, "p2", "Quick")

	v := recvView(t, s)
	if v.NumSubs != 2 { // host + p2; p1 dropped
		t.Fatalf("want 2 subscribers, got %d", v.NumSubs)
	}
	if v.PlayerCount != 2 {
		t.Fatalf("roster must be unaffected by the drop, got %d", v.PlayerCount)
	}
}

func TestSession_TimerGoroutinesReclaimed(t *testing.T) {
	s, hostOut, clock := newTestSession(t)

	base := runtime.NumGoroutine()

	qs := make([]quiz.Question, 10)
	for i := range qs {
		qs[i] = oneQuestion(5)[0]
	}
	errReply := make(chan error, 1)
	s.Send(Start{Questions: qs, Reply: errReply})
	if err := <-errReply; err != nil {
		t.Fatalf("start: %v", err)
	}

	for range qs {
		q := recvMsg(t, hostOut, time.Second)
		if q.Type != types.MsgQuestion {
			t.Fatalf("want Question, got %s", q.Type)
		}
		clock.Advance(5*time.Second + timeoutGrace)
		reveal := recvMsg(t, hostOut, time.Second)
		if reveal.Type != types.MsgReveal {
			t.Fatalf("want Reveal, got %s", reveal.Type)
		}
		s.Send(Advance{})
	}
	over := recvMsg(t, hostOut, time.Second)
	if over.Type != types.MsgGameOver {
		t.Fatalf("want GameOver, got %s", over.Type)
	}

	// Every per-question fire goroutine must exit when its timer is
	// stopped, not linger until session shutdown.
	deadline := time.After(2 * time.Second)
	for runtime.NumGoroutine() > base {
		select {
		case <-deadline:
			t.Fatalf("timer goroutines leaked: %d running, baseline %d", runtime.NumGoroutine(), base)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSession_ShutdownNotifiesPlayers(t *testing.T) {
	s, hostOut, _ := newTestSession(t)

	playerOut := join(t, s, "p1", "Sam")
	recvMsg(t, hostOut, time.Second)   // lobby
	recvMsg(t, playerOut, time.Second) // lobby

	s.Send(Shutdown{})

	closed := recvMsg(t, playerOut, time.Second)
	if closed.Type != types.MsgSessionClosed {
		t.Fatalf("want SessionClosed, got %s", closed.Type)
	}
	recvNoMsg(t, hostOut, 100*time.Millisecond)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not shut down")
	}
	if s.Send(Answer{ConnID: "p1", Index: 0}) {
		t.Fatalf("send to a dead session must report failure")
	}
}
