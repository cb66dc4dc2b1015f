package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sglgb/internal/assessment/models"
	"sglgb/internal/platform/config"
)

func inMemoryConfig() config.Config {
	return config.Config{
		Catalog: config.Catalog{
			Dir:        "../../configs/catalog",
			PolicyFile: "../../configs/policy.yaml",
		},
	}
}

func TestBuildInMemory(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, inMemoryConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Empty(t, a.Checks)
	_, ok := a.Policies.Policy().Deadline(2025)
	assert.True(t, ok)

	created, err := a.Service.Create(ctx, "unit-001", 2025)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, created.Status)

	sum, err := a.Service.Evaluate(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, sum.Passed)
}

func TestBuildRejectsMissingPolicy(t *testing.T) {
	cfg := inMemoryConfig()
	cfg.Catalog.PolicyFile = "does-not-exist.yaml"

	_, err := Build(context.Background(), cfg, slog.Default(), Options{})
	assert.ErrorContains(t, err, "load policy")
}

func TestShippedCatalogBuilds(t *testing.T) {
	a, err := Build(context.Background(), inMemoryConfig(), slog.Default(), Options{})
	require.NoError(t, err)
	defer a.Close()

	tree, err := a.Catalog.Tree(context.Background(), 2025)
	require.NoError(t, err)
	assert.Len(t, tree.Areas(), 6)
}
