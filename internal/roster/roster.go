package roster

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	MaxNameLen  = 24
	DefaultName = "Player"
)

// Answer records a player's submission for the current question. It is
// cleared at the start of every question.
type Answer struct {
	Index       int
	SubmittedAt time.Time
}

type Player struct {
	ID     string
	Name   string
	Score  int
	Answer *Answer // nil until the player answers the current question
}

// Standing is one leaderboard row. Rank is 1-based and distinct even on
// tied scores.
type Standing struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// Roster tracks the players of one session in join order. It is not safe
// for concurrent use; the session loop serializes all access.
type Roster struct {
	players []*Player
	byID    map[string]*Player
}

func New() *Roster {
	return &Roster{byID: make(map[string]*Player)}
}

// Add registers a player under a cleaned display name, suffixing a numeric
// disambiguator on a case-insensitive collision, and returns the name
// actually assigned.
func (r *Roster) Add(id, requestedName string) string {
	base := sanitize(requestedName)
	final := base
	for n := 2; r.nameTaken(final); n++ {
		final = fmt.Sprintf("%s #%d", base, n)
	}

	p := &Player{ID: id, Name: final}
	r.players = append(r.players, p)
	r.byID[id] = p
	return final
}

func (r *Roster) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	return true
}

func (r *Roster) Get(id string) (*Player, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the players in join order. The slice is a copy; the player
// records are shared.
func (r *Roster) All() []*Player {
	return append([]*Player(nil), r.players...)
}

func (r *Roster) Len() int {
	return len(r.players)
}

// ResetAnswers clears every player's recorded answer, called when a new
// question opens.
func (r *Roster) ResetAnswers() {
	for _, p := range r.players {
		p.Answer = nil
	}
}

// Standings returns all players sorted by score descending. Ties keep join
// order, so equal scores receive distinct sequential ranks.
func (r *Roster) Standings() []Standing {
	sorted := append([]*Player(nil), r.players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	out := make([]Standing, len(sorted))
	for i, p := range sorted {
		out[i] = Standing{ID: p.ID, Name: p.Name, Score: p.Score, Rank: i + 1}
	}
	return out
}

func (r *Roster) nameTaken(name string) bool {
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func sanitize(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	runes := []rune(name)
	if len(runes) > MaxNameLen {
		name = strings.TrimSpace(string(runes[:MaxNameLen]))
	}
	if name == "" {
		return DefaultName
	}
	return name
}
