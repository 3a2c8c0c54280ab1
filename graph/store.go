package graph

import (
	"context"

	"github.com/pkg/errors"
)

// ErrVertexNotFound indicates a query that was expected to match at least one
// vertex matched none.
var ErrVertexNotFound = errors.New("graph: no vertex matched query")

// Properties is the property set attached to a vertex or edge.
type Properties map[string]any

// Vertex is a handle to a stored vertex.  ID is assigned by the store.
type Vertex struct {
	ID    string
	Label string
	Props Properties
}

// Query matches vertices whose label equals Label (when non-empty) and whose
// properties equal every entry of Props.
type Query struct {
	Label string
	Props Properties
}

// Store is the property graph interface consumed by the topology graph
// builder.  Implementations are not required to be safe for concurrent
// builds of the same snapshot.
type Store interface {
	AddVertex(ctx context.Context, label string, props Properties) (*Vertex, error)
	AddEdge(ctx context.Context, from *Vertex, label string, to *Vertex, props Properties) error
	FindVertices(ctx context.Context, q Query) ([]*Vertex, error)

	// OutVertices returns the vertices reachable from the given vertex over
	// a single outgoing edge with the given label.
	OutVertices(ctx context.Context, from *Vertex, edgeLabel string) ([]*Vertex, error)

	// HasEdge reports whether an edge with the given label already exists
	// between the two vertices.
	HasEdge(ctx context.Context, from *Vertex, label string, to *Vertex) (bool, error)
}
