// Package keylock provides key-scoped mutual exclusion. Holders of distinct
// keys never contend with each other.
package keylock

import (
	"context"
	"strings"
)

type (
	// Unlock releases a lock obtained from a Locker. It is safe to call more than once.
	Unlock func()

	Locker interface {
		// Lock blocks until key is held or ctx is done.
		Lock(ctx context.Context, key string) (Unlock, error)
	}
)

// Key joins parts into a single lock key.
func Key(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
