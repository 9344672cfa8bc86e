package engine

import (
	"errors"
	"time"

	"github.com/quizdash/quizdash-backend/internal/quiz"
	"github.com/quizdash/quizdash-backend/internal/roster"
	"github.com/quizdash/quizdash-backend/internal/scoring"
)

var ErrWrongPhase = errors.New("action not legal in current phase")
var ErrNotInSession = errors.New("player not in session")
var ErrAlreadyJoined = errors.New("connection already joined")
var ErrAlreadyAnswered = errors.New("player already answered this question")
var ErrTooLate = errors.New("answer submitted after the time limit")
var ErrBadAnswerIndex = errors.New("answer index out of range")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseReveal   Phase = "reveal"
	PhaseEnded    Phase = "ended"
)

const (
	RevealBoardSize = 10
	FinalBoardSize  = 20
)

// State is the full game state of one session. The session loop owns it;
// Apply never reads the wall clock, commands carry their own timestamp.
type State struct {
	Phase     Phase
	Questions []quiz.Question
	Index     int
	StartedAt time.Time
	Players   *roster.Roster
}

func NewState() State {
	return State{Phase: PhaseLobby, Players: roster.New()}
}

type CommandType string

const (
	CmdJoin    CommandType = "Join"
	CmdLeave   CommandType = "Leave"
	CmdStart   CommandType = "Start"
	CmdAnswer  CommandType = "Answer"
	CmdAdvance CommandType = "Advance"
	CmdEnd     CommandType = "End"
	CmdTimeout CommandType = "Timeout"
)

type Command struct {
	Type        CommandType
	PlayerID    string
	Name        string
	AnswerIndex int
	Questions   []quiz.Question
	Index       int // Timeout only: the question the timer was armed for
	Now         time.Time
}

type EventType string

const (
	EvtLobbyChanged    EventType = "LobbyChanged"
	EvtQuestionStarted EventType = "QuestionStarted"
	EvtRevealed        EventType = "Revealed"
	EvtEnded           EventType = "Ended"
)

// PlayerResult is the per-player outcome of one reveal.
type PlayerResult struct {
	Correct bool
	Score   int
	Rank    int
}

type Reveal struct {
	Index        int
	CorrectIndex int
	Counts       [quiz.NumOptions]int
	Top          []roster.Standing
	Results      map[string]PlayerResult
}

type Event struct {
	Type   EventType
	Name   string            // LobbyChanged: assigned display name on join
	Reveal *Reveal           // Revealed only
	Final  []roster.Standing // Ended only
}

// Apply runs one command against the state and returns the events to
// broadcast plus the successor state. A stale Timeout is a silent no-op:
// it must match both the question phase and the index it was armed with,
// so a timer firing after the host forced a transition does nothing.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		if s.Phase != PhaseLobby {
			return nil, s, ErrWrongPhase
		}
		if _, ok := s.Players.Get(cmd.PlayerID); ok {
			return nil, s, ErrAlreadyJoined
		}
		name := s.Players.Add(cmd.PlayerID, cmd.Name)
		return []Event{{Type: EvtLobbyChanged, Name: name}}, s, nil

	case CmdLeave:
		if !s.Players.Remove(cmd.PlayerID) {
			return nil, s, ErrNotInSession
		}
		return []Event{{Type: EvtLobbyChanged}}, s, nil

	case CmdStart:
		if s.Phase != PhaseLobby {
			return nil, s, ErrWrongPhase
		}
		questions, err := quiz.Validate(cmd.Questions)
		if err != nil {
			return nil, s, err
		}
		newState := s
		newState.Questions = questions
		return startQuestion(newState, 0, cmd.Now)

	case CmdAnswer:
		if s.Phase != PhaseQuestion {
			return nil, s, ErrWrongPhase
		}
		player, ok := s.Players.Get(cmd.PlayerID)
		if !ok {
			return nil, s, ErrNotInSession
		}
		if player.Answer != nil {
			return nil, s, ErrAlreadyAnswered
		}
		if cmd.AnswerIndex < 0 || cmd.AnswerIndex >= quiz.NumOptions {
			return nil, s, ErrBadAnswerIndex
		}
		limit := time.Duration(s.Questions[s.Index].TimeLimitSec) * time.Second
		if cmd.Now.Sub(s.StartedAt) > limit {
			return nil, s, ErrTooLate
		}
		player.Answer = &roster.Answer{Index: cmd.AnswerIndex, SubmittedAt: cmd.Now}
		return nil, s, nil

	case CmdTimeout:
		if s.Phase != PhaseQuestion || cmd.Index != s.Index {
			return nil, s, nil
		}
		return reveal(s)

	case CmdAdvance:
		if s.Phase != PhaseReveal {
			return nil, s, ErrWrongPhase
		}
		next := s.Index + 1
		if next >= len(s.Questions) {
			return endGame(s)
		}
		return startQuestion(s, next, cmd.Now)

	case CmdEnd:
		if s.Phase == PhaseEnded {
			return nil, s, ErrWrongPhase
		}
		return endGame(s)

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func startQuestion(s State, index int, now time.Time) ([]Event, State, error) {
	newState := s
	newState.Phase = PhaseQuestion
	newState.Index = index
	newState.StartedAt = now
	newState.Players.ResetAnswers()
	return []Event{{Type: EvtQuestionStarted}}, newState, nil
}

// reveal closes the current question: score deltas, per-option counts,
// leaderboard, and per-player results, all computed in one pass so the
// broadcast layer never recomputes.
func reveal(s State) ([]Event, State, error) {
	q := s.Questions[s.Index]
	limit := time.Duration(q.TimeLimitSec) * time.Second

	var counts [quiz.NumOptions]int
	for _, p := range s.Players.All() {
		if p.Answer == nil {
			continue
		}
		counts[p.Answer.Index]++
		if p.Answer.Index == q.CorrectIndex {
			p.Score += scoring.Points(limit, p.Answer.SubmittedAt.Sub(s.StartedAt))
		}
	}

	standings := s.Players.Standings()
	results := make(map[string]PlayerResult, len(standings))
	for _, st := range standings {
		p, _ := s.Players.Get(st.ID)
		correct := p.Answer != nil && p.Answer.Index == q.CorrectIndex
		results[st.ID] = PlayerResult{Correct: correct, Score: st.Score, Rank: st.Rank}
	}

	newState := s
	newState.Phase = PhaseReveal
	ev := Event{Type: EvtRevealed, Reveal: &Reveal{
		Index:        s.Index,
		CorrectIndex: q.CorrectIndex,
		Counts:       counts,
		Top:          topN(standings, RevealBoardSize),
		Results:      results,
	}}
	return []Event{ev}, newState, nil
}

func endGame(s State) ([]Event, State, error) {
	newState := s
	newState.Phase = PhaseEnded
	final := topN(newState.Players.Standings(), FinalBoardSize)
	return []Event{{Type: EvtEnded, Final: final}}, newState, nil
}

func topN(standings []roster.Standing, n int) []roster.Standing {
	if len(standings) > n {
		return standings[:n]
	}
	return standings
}
