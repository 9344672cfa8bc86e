package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_HostCapable(t *testing.T) {
	cases := []struct {
		name       string
		secret     string
		credential string
		want       bool
	}{
		{"matching secret", "hunter2", "hunter2", true},
		{"wrong secret", "hunter2", "hunter3", false},
		{"empty credential", "hunter2", "", false},
		{"unset secret disables hosting", "", "", false},
		{"unset secret rejects any credential", "", "anything", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewGate(tc.secret).HostCapable(tc.credential))
		})
	}
}
