// Package metrics defines the capability set every metrics backend must
// expose to the performance models.  Concrete backends for different
// monitoring systems implement the same interface; no shared state is
// required between them.
package metrics

import (
	"context"
	"time"
)

// Options carries backend specific extra parameters.
type Options map[string]any

// Sample is one observation of one instance.
type Sample struct {
	Instance  string
	Component string
	Time      time.Time
	Value     float64
}

// Table is a tabular time series keyed by instance.
type Table []Sample

type Client interface {
	// GetServiceTimes returns a time series of the service times of each of
	// the bolt instances in the specified topology.
	GetServiceTimes(ctx context.Context, topologyID string, start, end time.Time, opts Options) (Table, error)

	// GetReceiveCounts returns a time series of the receive counts of each
	// of the bolt instances in the specified topology.
	GetReceiveCounts(ctx context.Context, topologyID string, start, end time.Time, opts Options) (Table, error)

	// GetEmitCounts returns a time series of the emit counts of each of the
	// instances in the specified topology.
	GetEmitCounts(ctx context.Context, topologyID string, start, end time.Time, opts Options) (Table, error)

	// GetExecuteCounts returns a time series of the execute counts of each
	// of the bolt instances in the specified topology.
	GetExecuteCounts(ctx context.Context, topologyID string, start, end time.Time, opts Options) (Table, error)
}
