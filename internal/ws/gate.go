package ws

import "crypto/subtle"

// Gate decides host capability from the shared secret a connection presents
// at upgrade time. The verdict is computed once and bound to the connection
// for its lifetime.
type Gate struct {
	secret string
}

func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// HostCapable reports whether the presented credential grants host control.
// An unset secret disables host capability entirely.
func (g *Gate) HostCapable(credential string) bool {
	if g.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(g.secret)) == 1
}
