package roster

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_SanitizesNames(t *testing.T) {
	cases := []struct {
		name      string
		requested string
		want      string
	}{
		{"trims and collapses whitespace", "  Sam \t  Smith ", "Sam Smith"},
		{"empty becomes placeholder", "   ", DefaultName},
		{"long name capped", strings.Repeat("a", MaxNameLen+10), strings.Repeat("a", MaxNameLen)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			assert.Equal(t, tc.want, r.Add("c1", tc.requested))
		})
	}
}

func TestAdd_DeduplicatesCaseInsensitive(t *testing.T) {
	r := New()
	assert.Equal(t, "Sam", r.Add("c1", "Sam"))
	assert.Equal(t, "Sam #2", r.Add("c2", "sam"))
	assert.Equal(t, "Sam #3", r.Add("c3", "SAM"))

	// No two concurrently-present players share a name, ignoring case.
	seen := map[string]bool{}
	for _, p := range r.All() {
		lower := strings.ToLower(p.Name)
		require.False(t, seen[lower], "duplicate name %q", p.Name)
		seen[lower] = true
	}
}

func TestRemove_FreesName(t *testing.T) {
	r := New()
	r.Add("c1", "Sam")
	require.True(t, r.Remove("c1"))
	require.False(t, r.Remove("c1"))

	// A fresh join may take the freed name again.
	assert.Equal(t, "Sam", r.Add("c2", "Sam"))
	assert.Equal(t, 1, r.Len())
}

func TestStandings_TiesKeepJoinOrderWithDistinctRanks(t *testing.T) {
	r := New()
	r.Add("a", "Alice")
	r.Add("b", "Bob")
	r.Add("c", "Cara")

	pa, _ := r.Get("a")
	pb, _ := r.Get("b")
	pc, _ := r.Get("c")
	pa.Score = 300
	pb.Score = 300
	pc.Score = 100

	standings := r.Standings()
	require.Len(t, standings, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{standings[0].Rank, standings[1].Rank, standings[2].Rank})
	assert.Equal(t, "Alice", standings[0].Name)
	assert.Equal(t, "Bob", standings[1].Name)
	assert.Equal(t, "Cara", standings[2].Name)
}

func TestResetAnswers(t *testing.T) {
	r := New()
	r.Add("a", "Alice")
	p, _ := r.Get("a")
	p.Answer = &Answer{Index: 2, SubmittedAt: time.Now()}

	r.ResetAnswers()
	assert.Nil(t, p.Answer)
}
