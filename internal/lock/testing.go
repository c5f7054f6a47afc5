package lock

import "github.com/redis/rueidis"

// NewForTest creates a Locker over a pre-built client (e.g. a rueidis mock)
// with a fixed token.
func NewForTest(c rueidis.Client, cfg Config, token string) *Locker {
	l := newLocker(c, cfg)
	l.token = func() string { return token }
	return l
}
