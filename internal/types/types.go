package types

import "github.com/quizdash/quizdash-backend/internal/quiz"

// Client -> server actions. Type discriminates; unused fields stay zero.
const (
	ActionCreate  = "create"
	ActionJoin    = "join"
	ActionStart   = "start"
	ActionAnswer  = "answer"
	ActionAdvance = "advance"
	ActionEnd     = "end"
)

type ClientMessage struct {
	Type      string          `json:"type"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name,omitempty"`
	Index     int             `json:"index,omitempty"`
	Questions []quiz.Question `json:"questions,omitempty"`
}

// Server -> client frames.
const (
	MsgSessionCreated = "SessionCreated"
	MsgLobby          = "Lobby"
	MsgQuestion       = "Question"
	MsgReveal         = "Reveal"
	MsgResult         = "Result"
	MsgGameOver       = "GameOver"
	MsgSessionClosed  = "SessionClosed"
	MsgError          = "Error"
)

type ServerMessage struct {
	Type     string        `json:"type"`
	Code     string        `json:"code,omitempty"` // SessionCreated
	Lobby    *LobbyView    `json:"lobby,omitempty"`
	Question *QuestionView `json:"question,omitempty"`
	Reveal   *RevealView   `json:"reveal,omitempty"`
	Result   *ResultView   `json:"result,omitempty"`
	GameOver *GameOverView `json:"gameOver,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type LobbyView struct {
	Code    string       `json:"code"`
	Count   int          `json:"count"`
	Players []PlayerView `json:"players"`
}

// QuestionView shows one question to players and host alike. Index is
// 1-based for display; the correct option is never included.
type QuestionView struct {
	Index            int      `json:"index"`
	Total            int      `json:"total"`
	Prompt           string   `json:"prompt"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	Code             string   `json:"code"`
}

type EntryView struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

type RevealView struct {
	Index        int         `json:"index"`
	Total        int         `json:"total"`
	CorrectIndex int         `json:"correctIndex"`
	Counts       [4]int      `json:"countsPerOption"`
	Leaderboard  []EntryView `json:"leaderboard"`
}

// ResultView is sent to exactly one player after a reveal.
type ResultView struct {
	Correct bool `json:"correct"`
	Score   int  `json:"yourScore"`
	Rank    int  `json:"yourRank"`
}

type GameOverView struct {
	Leaderboard []EntryView `json:"leaderboard"`
}
