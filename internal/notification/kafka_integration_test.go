//go:build integration

package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"sglgb/internal/assessment/models"
	"sglgb/pkg/testutil/containers"
)

func TestKafkaDispatcherProducesKeyedRecords(t *testing.T) {
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := configWith(rp.Brokers, "sglgb.test-events")
	d, err := NewKafka(cfg, slog.Default())
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Ping(ctx))
	require.NoError(t, d.EnsureTopic(ctx))
	require.NoError(t, d.EnsureTopic(ctx), "existing topic is not an error")

	events := []models.Event{
		{Type: models.EventAssessmentSubmitted, AssessmentID: "asm-1", OccurredAt: time.Now().UTC()},
		{Type: models.EventReviewStarted, AssessmentID: "asm-1", OccurredAt: time.Now().UTC()},
	}
	require.NoError(t, d.Dispatch(ctx, events))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []Message
	for len(got) < len(events) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			assert.Equal(t, "asm-1", string(r.Key))
			msg, err := Decode(r.Value)
			require.NoError(t, err)
			got = append(got, msg)
		})
	}
	assert.Equal(t, models.EventAssessmentSubmitted, got[0].Event.Type)
	assert.Equal(t, models.EventReviewStarted, got[1].Event.Type)
}
