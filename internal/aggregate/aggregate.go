// Package aggregate fans out source collection across all configured
// sources and merges the results into one aggregate snapshot.
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/weekly-report-agent/internal/normalize"
	"github.com/jonathan/weekly-report-agent/internal/relevance"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

// Fetcher retrieves the raw payload of one source. Implementations live in
// internal/sources; any returned error marks that source unavailable.
type Fetcher interface {
	Fetch(ctx context.Context, desc types.SourceDescriptor) (*types.RawSource, error)
}

// DefaultSourceTimeout bounds a single source fetch.
const DefaultSourceTimeout = 30 * time.Second

// Options tunes aggregator behavior.
type Options struct {
	// SourceTimeout bounds each individual fetch; zero means
	// DefaultSourceTimeout.
	SourceTimeout time.Duration
	// MaxConcurrent caps concurrent fetches; zero means unbounded.
	MaxConcurrent int
	Logger        *slog.Logger
}

// Aggregator drives normalize + filter across a fixed set of source
// descriptors. Descriptors and filter are immutable for the lifetime of
// the aggregator; each Collect call builds a fresh snapshot.
type Aggregator struct {
	fetcher     Fetcher
	filter      *relevance.Filter
	descriptors []types.SourceDescriptor
	timeout     time.Duration
	maxParallel int
	log         *slog.Logger
}

// New builds an Aggregator over the given descriptors.
func New(fetcher Fetcher, filter *relevance.Filter, descriptors []types.SourceDescriptor, opts Options) *Aggregator {
	timeout := opts.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		fetcher:     fetcher,
		filter:      filter,
		descriptors: descriptors,
		timeout:     timeout,
		maxParallel: opts.MaxConcurrent,
		log:         log,
	}
}

// Collect fetches, normalizes, and filters every configured source and
// assembles the aggregate snapshot. A failing source degrades the snapshot
// (recorded in Snapshot.Errors); the aggregation as a whole fails only when
// zero sources succeed (ErrAggregationFailed) or when nothing non-empty
// survives filtering (ErrNoDataCollected).
func (a *Aggregator) Collect(ctx context.Context) (*types.Snapshot, error) {
	if len(a.descriptors) == 0 {
		return nil, ErrNoSources
	}

	snapshot := &types.Snapshot{
		Sources:     make(map[string]types.SourceData, len(a.descriptors)),
		CollectedAt: time.Now().UTC(),
	}

	// Sources are independent and read-only; each goroutine writes a
	// disjoint snapshot key under mu.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if a.maxParallel > 0 {
		g.SetLimit(a.maxParallel)
	}

	results := make([]*types.SourceData, len(a.descriptors))
	failures := make([]*types.SourceError, len(a.descriptors))

	for i, desc := range a.descriptors {
		g.Go(func() error {
			data, err := a.collectSource(gctx, desc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Warn("source unavailable", "source", desc.ID, "error", err)
				failures[i] = &types.SourceError{SourceID: desc.ID, Message: err.Error()}
				return nil
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in descriptor order so the snapshot is deterministic for a
	// given outcome regardless of fetch completion order.
	succeeded := 0
	for i, desc := range a.descriptors {
		if failures[i] != nil {
			snapshot.Errors = append(snapshot.Errors, *failures[i])
			continue
		}
		snapshot.Sources[desc.ID] = *results[i]
		snapshot.SourceOrder = append(snapshot.SourceOrder, desc.ID)
		succeeded++
	}

	if succeeded == 0 {
		return nil, ErrAggregationFailed
	}
	if snapshot.NonEmptyTables() == 0 {
		return nil, ErrNoDataCollected
	}

	a.log.Info("aggregation complete",
		"sources", succeeded,
		"degraded", len(snapshot.Errors),
		"tables", snapshot.NonEmptyTables(),
		"rows", snapshot.TotalRows())
	return snapshot, nil
}

func (a *Aggregator) collectSource(ctx context.Context, desc types.SourceDescriptor) (*types.SourceData, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.fetcher.Fetch(fetchCtx, desc)
	if err != nil {
		return nil, err
	}

	tables := normalize.Source(raw)

	var included []types.NamedTable
	if desc.Mode == types.DetectExplicit && len(desc.Tabs) > 0 {
		included = explicitTabs(tables, desc.Tabs)
	} else {
		included = a.filter.Select(tables)
	}

	data := &types.SourceData{
		Title: raw.Title,
		Tabs:  make(map[string]types.Table, len(included)),
	}
	for _, tab := range included {
		data.Tabs[tab.Name] = tab.Table
		data.TabOrder = append(data.TabOrder, tab.Name)
	}
	return data, nil
}

// explicitTabs keeps exactly the configured tabs, in configured order.
// Unknown tab names are skipped rather than treated as errors.
func explicitTabs(tables []types.NamedTable, wanted []string) []types.NamedTable {
	byName := make(map[string]types.NamedTable, len(tables))
	for _, t := range tables {
		byName[strings.ToLower(t.Name)] = t
	}
	var out []types.NamedTable
	for _, name := range wanted {
		if t, ok := byName[strings.ToLower(name)]; ok {
			out = append(out, t)
		}
	}
	return out
}
