package compliance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sglgb/internal/indicator"
)

const policyYAML = `
min_met_areas: 4
required_areas: ["1", "2", "3"]
max_rework_cycles: 2
passing_level: MODERATELY_FUNCTIONAL
bbi_bands:
  - {level: HIGHLY_FUNCTIONAL, min_passed: 4}
  - {level: NON_FUNCTIONAL, min_passed: 0}
  - {level: MODERATELY_FUNCTIONAL, min_passed: 2}
deadlines:
  2025: 2025-03-31T23:59:59+08:00
`

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy(strings.NewReader(policyYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, p.MinMetAreas)
	assert.Equal(t, []indicator.Code{"1", "2", "3"}, p.RequiredAreas)
	assert.Equal(t, 2, p.MaxReworkCycles)
	assert.Equal(t, "NON_FUNCTIONAL", p.BBIBands[0].Level, "bands are sorted ascending")

	deadline, ok := p.Deadline(2025)
	require.True(t, ok)
	assert.True(t, deadline.Equal(time.Date(2025, 3, 31, 15, 59, 59, 0, time.UTC)))

	_, ok = p.Deadline(2026)
	assert.False(t, ok)
}

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxReworkCycles, p.MaxReworkCycles)
	assert.Equal(t, DefaultBands, p.BBIBands)
}

func TestLoadPolicyRejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"duplicate thresholds": "bbi_bands: [{level: A, min_passed: 1}, {level: B, min_passed: 1}]",
		"unknown passing level": "passing_level: NOPE",
		"negative minimum":      "min_met_areas: -1",
		"unknown field":         "pass_count: 3",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPolicy(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestPolicySourceReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_met_areas: 3\n"), 0o600))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Policy().MinMetAreas)

	changed, err := src.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file is not reloaded")

	require.NoError(t, os.WriteFile(path, []byte("min_met_areas: 4\n"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	changed, err = src.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 4, src.Policy().MinMetAreas)

	require.NoError(t, os.WriteFile(path, []byte("min_met_areas: nope\n"), 0o600))
	later := future.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	_, err = src.Reload()
	assert.Error(t, err)
	assert.Equal(t, 4, src.Policy().MinMetAreas, "bad file keeps the previous policy")
}

func TestPolicySourceWatchStopsOnCancel(t *testing.T) {
	src := NewStaticSource(DefaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src.Watch(ctx, time.Millisecond)
	assert.Equal(t, DefaultMaxReworkCycles, src.Policy().MaxReworkCycles)
}
