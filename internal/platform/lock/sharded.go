package lock

import (
	"context"
	"sync"

	dErrors "sglgb/pkg/domain-errors"
)

// numShards trades memory for contention: keys hash onto a fixed set of
// slots, so unrelated assessments rarely wait on each other.
const numShards = 128

// Sharded is an in-process Locker. It serializes every key in one process
// only; multi-replica deployments use the Redis locker.
type Sharded struct {
	shards [numShards]chan struct{}
}

// NewSharded builds an in-process locker.
func NewSharded() *Sharded {
	s := &Sharded{}
	for i := range s.shards {
		s.shards[i] = make(chan struct{}, 1)
	}
	return s
}

func (s *Sharded) Lock(ctx context.Context, key string) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	slot := s.shards[hashKey(key)%numShards]
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for assessment lock")
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

// hashKey uses FNV-1a for better distribution than simple multiply-add.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
