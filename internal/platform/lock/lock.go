// Package lock provides the per-assessment exclusive lock. Transitions and
// scheduler writes take it around load, check and save so two requests on
// the same assessment cannot both pass a precondition.
package lock

import "context"

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker acquires an exclusive lock on key, waiting until ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}
