package quiz

import (
	"errors"
	"strings"
)

const (
	NumOptions      = 4
	MaxQuestions    = 50
	MaxPromptLen    = 200
	MaxOptionLen    = 120
	MinTimeLimitSec = 5
	MaxTimeLimitSec = 120
)

var ErrNoQuestions = errors.New("question list is empty")
var ErrTooManyQuestions = errors.New("too many questions")
var ErrEmptyPrompt = errors.New("question prompt is empty")
var ErrBadOptions = errors.New("question must have exactly four non-empty options")
var ErrBadCorrectIndex = errors.New("correct index out of range")

// Question is one multiple-choice question as exchanged with the authoring
// side. Once a validated list is attached to a running session it is never
// mutated.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimitSec int      `json:"timeLimitSeconds"`
}

// Validate checks a host-supplied question list and returns a cleaned copy.
// The list is rejected as a whole on the first invalid entry. Prompts and
// options are trimmed and capped; time limits are clamped rather than
// rejected, since the authoring side has no hard contract on them.
func Validate(raw []Question) ([]Question, error) {
	if len(raw) == 0 {
		return nil, ErrNoQuestions
	}
	if len(raw) > MaxQuestions {
		return nil, ErrTooManyQuestions
	}

	out := make([]Question, 0, len(raw))
	for _, q := range raw {
		prompt := truncate(strings.TrimSpace(q.Prompt), MaxPromptLen)
		if prompt == "" {
			return nil, ErrEmptyPrompt
		}

		if len(q.Options) != NumOptions {
			return nil, ErrBadOptions
		}
		opts := make([]string, NumOptions)
		for i, o := range q.Options {
			o = truncate(strings.TrimSpace(o), MaxOptionLen)
			if o == "" {
				return nil, ErrBadOptions
			}
			opts[i] = o
		}

		if q.CorrectIndex < 0 || q.CorrectIndex >= NumOptions {
			return nil, ErrBadCorrectIndex
		}

		limit := q.TimeLimitSec
		if limit < MinTimeLimitSec {
			limit = MinTimeLimitSec
		}
		if limit > MaxTimeLimitSec {
			limit = MaxTimeLimitSec
		}

		out = append(out, Question{
			Prompt:       prompt,
			Options:      opts,
			CorrectIndex: q.CorrectIndex,
			TimeLimitSec: limit,
		})
	}
	return out, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
