package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sglgb/internal/assessment/models"
	"sglgb/internal/indicator"
	"sglgb/pkg/platform/sentinel"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func testTree(year int) *indicator.Tree {
	return indicator.NewBuilder(year).
		Area("1", "Financial Administration").
		Indicator("1", indicator.Spec{Code: "1.1"}).
		Item(indicator.ChecklistItem{ID: "1.1.a", Indicator: "1.1", Required: true}).
		MustBuild()
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns version 1 and rejects a second assessment for the same unit and year", func(t *testing.T) {
		s := NewInMemory()
		a := models.NewAssessment("a1", "unit-1", testTree(2025), t0)
		require.NoError(t, s.Create(ctx, a))
		assert.Equal(t, 1, a.Version)

		dup := models.NewAssessment("a2", "unit-1", testTree(2025), t0)
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrAlreadyUsed)

		other := models.NewAssessment("a3", "unit-1", testTree(2026), t0)
		assert.NoError(t, s.Create(ctx, other))
	})

	t.Run("find returns a copy", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.Create(ctx, models.NewAssessment("a1", "unit-1", testTree(2025), t0)))

		got, err := s.FindByID(ctx, "a1")
		require.NoError(t, err)
		got.AreaStatuses["1"] = models.AreaAssessed

		again, err := s.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, models.AreaPending, again.AreaStatuses["1"])

		_, err = s.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("update is guarded by version", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.Create(ctx, models.NewAssessment("a1", "unit-1", testTree(2025), t0)))

		first, _ := s.FindByID(ctx, "a1")
		second, _ := s.FindByID(ctx, "a1")

		first.ReworkCount = 1
		require.NoError(t, s.Update(ctx, first))
		assert.Equal(t, 2, first.Version)

		second.ReworkCount = 5
		assert.ErrorIs(t, s.Update(ctx, second), sentinel.ErrConflict)

		stored, _ := s.FindByID(ctx, "a1")
		assert.Equal(t, 1, stored.ReworkCount)

		assert.ErrorIs(t, s.Update(ctx, models.NewAssessment("nope", "u", testTree(2025), t0)), sentinel.ErrNotFound)
	})

	t.Run("list filters by status and year", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.Create(ctx, models.NewAssessment("b", "unit-1", testTree(2025), t0)))
		require.NoError(t, s.Create(ctx, models.NewAssessment("a", "unit-2", testTree(2025), t0)))
		require.NoError(t, s.Create(ctx, models.NewAssessment("c", "unit-1", testTree(2026), t0)))

		ids, err := s.ListIDsByStatus(ctx, models.StatusDraft, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)

		ids, err = s.ListIDsByStatus(ctx, models.StatusDraft, 2026)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids)

		ids, err = s.ListIDsByStatus(ctx, models.StatusSubmitted, 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
