package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	fixed := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestActor(t *testing.T) {
	assert.Equal(t, ActorInfo{}, Actor(context.Background()))

	ctx := WithActor(context.Background(), ActorInfo{ID: "u-1", Role: "assessor", Areas: []string{"1"}})
	got := Actor(ctx)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, []string{"1"}, got.Areas)
}
