package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoints(t *testing.T) {
	cases := []struct {
		name    string
		limit   time.Duration
		elapsed time.Duration
		want    int
	}{
		{"instant answer gets full bonus", 20 * time.Second, 0, 1500},
		{"answer at the limit gets base only", 20 * time.Second, 20 * time.Second, 500},
		{"halfway answer gets half bonus", 20 * time.Second, 10 * time.Second, 1000},
		{"two seconds into ten", 10 * time.Second, 2 * time.Second, 1300},
		{"bonus rounds to nearest", 3 * time.Second, 1 * time.Second, 500 + 667},
		{"negative remaining clamps to zero", 20 * time.Second, 25 * time.Second, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Points(tc.limit, tc.elapsed))
		})
	}
}
