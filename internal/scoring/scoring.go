package scoring

import (
	"math"
	"time"
)

const (
	// CorrectBase is awarded for any correct answer regardless of speed.
	CorrectBase = 500
	// MaxSpeedBonus is the bonus for an instant correct answer; it decays
	// linearly to zero at the question's time limit.
	MaxSpeedBonus = 1000
)

// Points returns the score delta for a correct answer submitted after
// elapsed time on a question with the given limit. Incorrect and absent
// answers score zero and never reach this function; late answers are
// rejected upstream and never scored at all.
func Points(limit, elapsed time.Duration) int {
	remaining := limit - elapsed
	if remaining < 0 {
		remaining = 0
	}
	bonus := math.Round(MaxSpeedBonus * remaining.Seconds() / limit.Seconds())
	return CorrectBase + int(bonus)
}
