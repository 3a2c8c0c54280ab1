// Package builder turns the logical and physical plans of a running stream
// processing topology into a connected property graph.
package builder

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/streamscale/topograph/graph"
	"github.com/streamscale/topograph/tracker"
)

// PlanSource supplies the plan documents for a topology.  *tracker.Client is
// the production implementation.
type PlanSource interface {
	GetLogicalPlan(ctx context.Context, cluster, environ, topologyID string) (*tracker.LogicalPlan, error)
	GetPhysicalPlan(ctx context.Context, cluster, environ, topologyID string) (*tracker.PhysicalPlan, error)
}

type Options struct {
	Logger *zap.Logger
	Plans  PlanSource
	Store  graph.Store
}

// Builder materializes topology snapshots in a graph store.  Each build is a
// strictly sequential series of store mutations tagged with the topology id
// and snapshot ref; a failure partway through leaves a partial snapshot that
// the caller must discard.
type Builder struct {
	logger *zap.Logger
	plans  PlanSource
	store  graph.Store
}

func NewBuilder(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		logger: logger,
		plans:  opts.Plans,
		store:  opts.Store,
	}
}

// BuildSnapshot fetches the plans for the given topology and creates the
// vertices and edges describing one observed deployment instant.  Running it
// twice with the same snapshotRef duplicates vertices; snapshot isolation is
// purely by the (topology_id, snapshot_ref) tag pair.
func (b *Builder) BuildSnapshot(ctx context.Context, topologyID, snapshotRef, cluster, environ string) error {
	b.logger.Info("building topology graph",
		zap.String("topology", topologyID),
		zap.String("snapshotRef", snapshotRef),
		zap.String("cluster", cluster),
		zap.String("environ", environ))

	logicalPlan, err := b.plans.GetLogicalPlan(ctx, cluster, environ, topologyID)
	if err != nil {
		return err
	}

	physicalPlan, err := b.plans.GetPhysicalPlan(ctx, cluster, environ, topologyID)
	if err != nil {
		return err
	}

	err = b.createStreamManagers(ctx, topologyID, snapshotRef, physicalPlan)
	if err != nil {
		return err
	}

	err = b.createSpouts(ctx, topologyID, snapshotRef, physicalPlan, logicalPlan)
	if err != nil {
		return err
	}

	err = b.createBolts(ctx, topologyID, snapshotRef, physicalPlan, logicalPlan)
	if err != nil {
		return err
	}

	err = b.createLogicalConnections(ctx, topologyID, snapshotRef, logicalPlan)
	if err != nil {
		return err
	}

	return b.createPhysicalConnections(ctx, topologyID, snapshotRef)
}

// createStreamManagers creates one stream manager vertex and one container
// vertex per physical plan stream manager entry.  This step is append-only,
// it never looks for pre-existing vertices.
func (b *Builder) createStreamManagers(
	ctx context.Context,
	topologyID, snapshotRef string,
	physicalPlan *tracker.PhysicalPlan,
) error {
	b.logger.Info("creating stream manager and container vertices")

	for _, stmgr := range physicalPlan.Stmgrs {
		container, err := tracker.ParseStmgrID(stmgr.ID)
		if err != nil {
			return err
		}

		b.logger.Debug("creating vertex for stream manager", zap.String("stmgr", stmgr.ID))

		stmgrVertex, err := b.store.AddVertex(ctx, "stream_manager", graph.Properties{
			"id":           stmgr.ID,
			"host":         stmgr.Host,
			"port":         stmgr.Port,
			"shell_port":   stmgr.ShellPort,
			"topology_id":  topologyID,
			"snapshot_ref": snapshotRef,
		})
		if err != nil {
			return err
		}

		b.logger.Debug("creating vertex for container", zap.Int("container", container))

		containerVertex, err := b.store.AddVertex(ctx, "container", graph.Properties{
			"id":           container,
			"topology_id":  topologyID,
			"snapshot_ref": snapshotRef,
		})
		if err != nil {
			return err
		}

		err = b.store.AddEdge(ctx, stmgrVertex, "is_within", containerVertex, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) createSpouts(
	ctx context.Context,
	topologyID, snapshotRef string,
	physicalPlan *tracker.PhysicalPlan,
	logicalPlan *tracker.LogicalPlan,
) error {
	for spoutName, spoutData := range logicalPlan.Spouts {
		b.logger.Debug("creating vertices for instances of spout component",
			zap.String("component", spoutName))

		for _, instanceName := range physicalPlan.Spouts[spoutName] {
			instance, err := tracker.ParseInstanceName(instanceName)
			if err != nil {
				return err
			}

			placement, ok := physicalPlan.Instances[instanceName]
			if !ok {
				return errors.Errorf("builder: instance %q missing from physical plan instance map", instanceName)
			}

			b.logger.Debug("creating vertex for spout instance",
				zap.String("instance", instanceName))

			spoutVertex, err := b.store.AddVertex(ctx, "spout", graph.Properties{
				"container":      instance.Container,
				"task_id":        instance.TaskID,
				"component":      spoutName,
				"stream_manager": placement.StmgrID,
				"spout_type":     spoutData.SpoutType,
				"spout_source":   spoutData.SpoutSource,
				"topology_id":    topologyID,
				"snapshot_ref":   snapshotRef,
			})
			if err != nil {
				return err
			}

			err = b.connectToContainer(ctx, topologyID, snapshotRef, spoutVertex, instance.Container, instanceName)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Builder) createBolts(
	ctx context.Context,
	topologyID, snapshotRef string,
	physicalPlan *tracker.PhysicalPlan,
	logicalPlan *tracker.LogicalPlan,
) error {
	for boltName := range logicalPlan.Bolts {
		b.logger.Debug("creating vertices for instances of bolt component",
			zap.String("component", boltName))

		for _, instanceName := range physicalPlan.Bolts[boltName] {
			instance, err := tracker.ParseInstanceName(instanceName)
			if err != nil {
				return err
			}

			placement, ok := physicalPlan.Instances[instanceName]
			if !ok {
				return errors.Errorf("builder: instance %q missing from physical plan instance map", instanceName)
			}

			b.logger.Debug("creating vertex for bolt instance",
				zap.String("instance", instanceName))

			boltVertex, err := b.store.AddVertex(ctx, "bolt", graph.Properties{
				"container":      instance.Container,
				"task_id":        instance.TaskID,
				"component":      boltName,
				"stream_manager": placement.StmgrID,
				"topology_id":    topologyID,
				"snapshot_ref":   snapshotRef,
			})
			if err != nil {
				return err
			}

			err = b.connectToContainer(ctx, topologyID, snapshotRef, boltVertex, instance.Container, instanceName)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// connectToContainer links an instance vertex to the container vertex created
// by createStreamManagers.  The container must already exist.
func (b *Builder) connectToContainer(
	ctx context.Context,
	topologyID, snapshotRef string,
	instanceVertex *graph.Vertex,
	container int,
	instanceName string,
) error {
	containers, err := b.store.FindVertices(ctx, graph.Query{
		Label: "container",
		Props: graph.Properties{
			"topology_id":  topologyID,
			"snapshot_ref": snapshotRef,
			"id":           container,
		},
	})
	if err != nil {
		return err
	}

	if len(containers) == 0 {
		return errors.Wrapf(graph.ErrVertexNotFound,
			"builder: container %d for instance %q", container, instanceName)
	}

	return b.store.AddEdge(ctx, instanceVertex, "is_within", containers[0], nil)
}

// createLogicalConnections expands every declared input stream of every bolt
// component into one logically_connected edge per (source instance,
// destination instance) pair.  The full cross product is intentional, it
// models an all-to-all logical channel which downstream consumers filter and
// weight using the grouping property.
func (b *Builder) createLogicalConnections(
	ctx context.Context,
	topologyID, snapshotRef string,
	logicalPlan *tracker.LogicalPlan,
) error {
	b.logger.Info("adding logical connections between topology instances",
		zap.String("topology", topologyID))

	for boltName, boltData := range logicalPlan.Bolts {
		b.logger.Debug("adding logical connections for instances of bolt",
			zap.String("component", boltName))

		destinations, err := b.store.FindVertices(ctx, graph.Query{
			Props: graph.Properties{
				"topology_id":  topologyID,
				"snapshot_ref": snapshotRef,
				"component":    boltName,
			},
		})
		if err != nil {
			return err
		}

		for _, input := range boltData.Inputs {
			sources, err := b.store.FindVertices(ctx, graph.Query{
				Props: graph.Properties{
					"topology_id":  topologyID,
					"snapshot_ref": snapshotRef,
					"component":    input.ComponentName,
				},
			})
			if err != nil {
				return err
			}

			for _, destination := range destinations {
				for _, source := range sources {
					err := b.store.AddEdge(ctx, source, "logically_connected", destination, graph.Properties{
						"stream_name": input.StreamName,
						"grouping":    input.Grouping,
					})
					if err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

// createPhysicalConnections records the actual message routing paths between
// logically connected instances.  Two instances are physically connected iff
// they are served by the same stream manager; cross-manager traffic flows
// through the stream manager mesh and is not materialized at the instance
// level.  A pair sharing several streams still yields a single edge.
func (b *Builder) createPhysicalConnections(
	ctx context.Context,
	topologyID, snapshotRef string,
) error {
	b.logger.Info("adding physical connections between topology instances",
		zap.String("topology", topologyID))

	for _, label := range []string{"spout", "bolt"} {
		sources, err := b.store.FindVertices(ctx, graph.Query{
			Label: label,
			Props: graph.Properties{
				"topology_id":  topologyID,
				"snapshot_ref": snapshotRef,
			},
		})
		if err != nil {
			return err
		}

		for _, source := range sources {
			destinations, err := b.store.OutVertices(ctx, source, "logically_connected")
			if err != nil {
				return err
			}

			for _, destination := range destinations {
				if source.Props["stream_manager"] != destination.Props["stream_manager"] {
					continue
				}

				exists, err := b.store.HasEdge(ctx, source, "physically_connected", destination)
				if err != nil {
					return err
				}
				if exists {
					continue
				}

				err = b.store.AddEdge(ctx, source, "physically_connected", destination, nil)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}
