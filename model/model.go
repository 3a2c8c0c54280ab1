// Package model defines the contract implemented by the performance models
// that consume topology snapshots.
package model

import (
	"github.com/streamscale/topograph/graph"
	"github.com/streamscale/topograph/metrics"
)

type Model interface {
	// Name is used to reference the model in the API so it must be unique.
	Name() string

	// Description is shown by the model info endpoints.
	Description() string
}

// Base bundles the collaborators shared by every concrete model.
type Base struct {
	Metrics metrics.Client
	Graph   graph.Store
}
