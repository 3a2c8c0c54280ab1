package graph

import (
	"context"
	"strconv"
	"sync"
)

// Edge is a stored edge.  It is exposed so tests and local tooling can
// inspect what a build produced.
type Edge struct {
	From  *Vertex
	Label string
	To    *Vertex
	Props Properties
}

// InMemoryStore is an in-process Store implementation used by tests and
// local runs.
type InMemoryStore struct {
	lock     sync.Mutex
	nextID   uint64
	vertices []*Vertex
	edges    []*Edge
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func cloneProps(props Properties) Properties {
	cloned := make(Properties, len(props))
	for k, v := range props {
		cloned[k] = v
	}
	return cloned
}

func matchesQuery(v *Vertex, q Query) bool {
	if q.Label != "" && v.Label != q.Label {
		return false
	}
	for k, want := range q.Props {
		if v.Props[k] != want {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) findVertexLocked(id string) *Vertex {
	for _, v := range s.vertices {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (s *InMemoryStore) AddVertex(ctx context.Context, label string, props Properties) (*Vertex, error) {
	s.lock.Lock()

	s.nextID++
	v := &Vertex{
		ID:    strconv.FormatUint(s.nextID, 10),
		Label: label,
		Props: cloneProps(props),
	}
	s.vertices = append(s.vertices, v)

	s.lock.Unlock()

	return v, nil
}

func (s *InMemoryStore) AddEdge(ctx context.Context, from *Vertex, label string, to *Vertex, props Properties) error {
	s.lock.Lock()

	s.edges = append(s.edges, &Edge{
		From:  s.findVertexLocked(from.ID),
		Label: label,
		To:    s.findVertexLocked(to.ID),
		Props: cloneProps(props),
	})

	s.lock.Unlock()

	return nil
}

func (s *InMemoryStore) FindVertices(ctx context.Context, q Query) ([]*Vertex, error) {
	s.lock.Lock()

	var matched []*Vertex
	for _, v := range s.vertices {
		if matchesQuery(v, q) {
			matched = append(matched, v)
		}
	}

	s.lock.Unlock()

	return matched, nil
}

func (s *InMemoryStore) OutVertices(ctx context.Context, from *Vertex, edgeLabel string) ([]*Vertex, error) {
	s.lock.Lock()

	var matched []*Vertex
	for _, e := range s.edges {
		if e.Label == edgeLabel && e.From != nil && e.From.ID == from.ID {
			matched = append(matched, e.To)
		}
	}

	s.lock.Unlock()

	return matched, nil
}

func (s *InMemoryStore) HasEdge(ctx context.Context, from *Vertex, label string, to *Vertex) (bool, error) {
	s.lock.Lock()

	found := false
	for _, e := range s.edges {
		if e.Label == label &&
			e.From != nil && e.From.ID == from.ID &&
			e.To != nil && e.To.ID == to.ID {
			found = true
			break
		}
	}

	s.lock.Unlock()

	return found, nil
}

// Vertices returns a copy of the stored vertex list.
func (s *InMemoryStore) Vertices() []*Vertex {
	s.lock.Lock()
	vertices := make([]*Vertex, len(s.vertices))
	copy(vertices, s.vertices)
	s.lock.Unlock()

	return vertices
}

// Edges returns a copy of the stored edge list.
func (s *InMemoryStore) Edges() []*Edge {
	s.lock.Lock()
	edges := make([]*Edge, len(s.edges))
	copy(edges, s.edges)
	s.lock.Unlock()

	return edges
}
