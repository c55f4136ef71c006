package aggregate

import "errors"

// ErrAggregationFailed is returned when no configured source could be
// fetched at all. The draft phase must not proceed to content generation.
var ErrAggregationFailed = errors.New("aggregation failed: no source could be collected")

// ErrNoDataCollected is returned when sources were reachable but the
// snapshot holds no non-empty table after filtering.
var ErrNoDataCollected = errors.New("no data collected: snapshot contains no non-empty table")

// ErrNoSources is returned when the aggregator is invoked with an empty
// source configuration.
var ErrNoSources = errors.New("no sources configured")
