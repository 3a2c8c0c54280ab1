// Package buildmetrics holds the prometheus instrumentation for snapshot
// builds, served by the webapi /metrics endpoint.
package buildmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/streamscale/topograph/graph"
)

var (
	BuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topograph_builds_total",
		Help: "Number of snapshot builds started.",
	})

	BuildFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topograph_build_failures_total",
		Help: "Number of snapshot builds that failed.",
	})

	verticesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topograph_graph_vertices_created_total",
		Help: "Number of vertices created in the graph store.",
	})

	edgesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topograph_graph_edges_created_total",
		Help: "Number of edges created in the graph store.",
	})
)

type instrumentedStore struct {
	inner graph.Store
}

var _ graph.Store = (*instrumentedStore)(nil)

// WrapStore decorates a graph store so vertex and edge creations are counted.
func WrapStore(inner graph.Store) graph.Store {
	return &instrumentedStore{inner: inner}
}

func (s *instrumentedStore) AddVertex(ctx context.Context, label string, props graph.Properties) (*graph.Vertex, error) {
	v, err := s.inner.AddVertex(ctx, label, props)
	if err == nil {
		verticesCreatedTotal.Inc()
	}
	return v, err
}

func (s *instrumentedStore) AddEdge(ctx context.Context, from *graph.Vertex, label string, to *graph.Vertex, props graph.Properties) error {
	err := s.inner.AddEdge(ctx, from, label, to, props)
	if err == nil {
		edgesCreatedTotal.Inc()
	}
	return err
}

func (s *instrumentedStore) FindVertices(ctx context.Context, q graph.Query) ([]*graph.Vertex, error) {
	return s.inner.FindVertices(ctx, q)
}

func (s *instrumentedStore) OutVertices(ctx context.Context, from *graph.Vertex, edgeLabel string) ([]*graph.Vertex, error) {
	return s.inner.OutVertices(ctx, from, edgeLabel)
}

func (s *instrumentedStore) HasEdge(ctx context.Context, from *graph.Vertex, label string, to *graph.Vertex) (bool, error) {
	return s.inner.HasEdge(ctx, from, label, to)
}
