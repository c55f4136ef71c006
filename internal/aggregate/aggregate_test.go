package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/weekly-report-agent/internal/relevance"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

// fakeFetcher serves canned payloads per source ID and records fetch counts.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string]*types.RawSource
	errs     map[string]error
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		payloads: make(map[string]*types.RawSource),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, desc types.SourceDescriptor) (*types.RawSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[desc.ID]++
	if err, ok := f.errs[desc.ID]; ok {
		return nil, err
	}
	if raw, ok := f.payloads[desc.ID]; ok {
		return raw, nil
	}
	return nil, errors.New("unknown source")
}

func grid(rows int) [][]any {
	cells := [][]any{{"Header"}}
	for i := 0; i < rows; i++ {
		cells = append(cells, []any{"row"})
	}
	return cells
}

func descriptors(ids ...string) []types.SourceDescriptor {
	out := make([]types.SourceDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.SourceDescriptor{ID: id, Kind: types.KindSheet, Location: id, Mode: types.DetectAuto})
	}
	return out
}

func TestCollectOneSourceDownDegradesGracefully(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.payloads["alpha"] = &types.RawSource{Title: "Alpha", Tabs: []types.RawTab{{Name: "Metrics", Cells: grid(4)}}}
	fetcher.payloads["beta"] = &types.RawSource{Title: "Beta", Tabs: []types.RawTab{{Name: "Status", Cells: grid(2)}}}
	fetcher.errs["gamma"] = errors.New("source gamma unreachable")

	agg := New(fetcher, relevance.New(relevance.Config{}), descriptors("alpha", "beta", "gamma"), Options{})
	snap, err := agg.Collect(context.Background())

	require.NoError(t, err)
	assert.Len(t, snap.Sources, 2)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "gamma", snap.Errors[0].SourceID)
	assert.Equal(t, []string{"alpha", "beta"}, snap.SourceOrder)
}

func TestCollectAllSourcesDownFailsAggregation(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["a"] = errors.New("down")
	fetcher.errs["b"] = errors.New("down")
	fetcher.errs["c"] = errors.New("down")

	agg := New(fetcher, relevance.New(relevance.Config{}), descriptors("a", "b", "c"), Options{})
	_, err := agg.Collect(context.Background())

	assert.ErrorIs(t, err, ErrAggregationFailed)
}

func TestCollectEmptyTablesOnlyFailsValidation(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.payloads["a"] = &types.RawSource{Title: "A", Tabs: []types.RawTab{{Name: "Metrics", Cells: grid(0)}}}

	agg := New(fetcher, relevance.New(relevance.Config{}), descriptors("a"), Options{})
	_, err := agg.Collect(context.Background())

	assert.ErrorIs(t, err, ErrNoDataCollected)
}

func TestCollectNoSourcesConfigured(t *testing.T) {
	agg := New(newFakeFetcher(), relevance.New(relevance.Config{}), nil, Options{})
	_, err := agg.Collect(context.Background())

	assert.ErrorIs(t, err, ErrNoSources)
}

func TestCollectAppliesRelevanceFilter(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.payloads["tracker"] = &types.RawSource{
		Title: "Tracker",
		Tabs: []types.RawTab{
			{Name: "KPIs", Cells: grid(10)},
			{Name: "Archive", Cells: grid(5)},
			{Name: "Scratch", Cells: grid(1)},
		},
	}

	agg := New(fetcher, relevance.New(relevance.Config{}), descriptors("tracker"), Options{})
	snap, err := agg.Collect(context.Background())

	require.NoError(t, err)
	src := snap.Sources["tracker"]
	assert.Equal(t, []string{"KPIs"}, src.TabOrder)
	assert.Equal(t, 10, src.Tabs["KPIs"].DataRows())
}

func TestCollectExplicitModeSkipsHeuristic(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.payloads["tracker"] = &types.RawSource{
		Title: "Tracker",
		Tabs: []types.RawTab{
			{Name: "Archive", Cells: grid(5)},
			{Name: "Notes", Cells: grid(1)},
			{Name: "KPIs", Cells: grid(2)},
		},
	}

	agg := New(fetcher, relevance.New(relevance.Config{}), []types.SourceDescriptor{{
		ID:       "tracker",
		Kind:     types.KindSheet,
		Location: "tracker",
		Mode:     types.DetectExplicit,
		Tabs:     []string{"Notes", "archive", "Missing"},
	}}, Options{})
	snap, err := agg.Collect(context.Background())

	require.NoError(t, err)
	src := snap.Sources["tracker"]
	assert.Equal(t, []string{"Notes", "Archive"}, src.TabOrder)
}

func TestCollectFetchesEachSourceOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.payloads["a"] = &types.RawSource{Title: "A", Tabs: []types.RawTab{{Name: "Data", Cells: grid(3)}}}
	fetcher.payloads["b"] = &types.RawSource{Title: "B", Tabs: []types.RawTab{{Name: "Data", Cells: grid(3)}}}

	agg := New(fetcher, relevance.New(relevance.Config{}), descriptors("a", "b"), Options{MaxConcurrent: 1})
	_, err := agg.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls["a"])
	assert.Equal(t, 1, fetcher.calls["b"])
}
