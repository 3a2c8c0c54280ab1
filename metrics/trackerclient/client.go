// Package trackerclient implements the metrics client contract on top of the
// topology tracker's metrics timeline endpoint.
package trackerclient

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/streamscale/topograph/metrics"
	"github.com/streamscale/topograph/tracker"
)

const (
	serviceTimeMetric  = "__execute-latency"
	receiveCountMetric = "__receive-count"
	emitCountMetric    = "__emit-count"
	executeCountMetric = "__execute-count"
)

type ClientOptions struct {
	Tracker *tracker.Client
	Cluster string
	Environ string
	Logger  *zap.Logger
}

type Client struct {
	tracker *tracker.Client
	cluster string
	environ string
	logger  *zap.Logger
}

var _ metrics.Client = (*Client)(nil)

func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		tracker: opts.Tracker,
		cluster: opts.Cluster,
		environ: opts.Environ,
		logger:  logger,
	}
}

func (c *Client) GetServiceTimes(ctx context.Context, topologyID string, start, end time.Time, opts metrics.Options) (metrics.Table, error) {
	return c.getComponentMetric(ctx, topologyID, serviceTimeMetric, start, end, false)
}

func (c *Client) GetReceiveCounts(ctx context.Context, topologyID string, start, end time.Time, opts metrics.Options) (metrics.Table, error) {
	return c.getComponentMetric(ctx, topologyID, receiveCountMetric, start, end, false)
}

func (c *Client) GetEmitCounts(ctx context.Context, topologyID string, start, end time.Time, opts metrics.Options) (metrics.Table, error) {
	return c.getComponentMetric(ctx, topologyID, emitCountMetric, start, end, true)
}

func (c *Client) GetExecuteCounts(ctx context.Context, topologyID string, start, end time.Time, opts metrics.Options) (metrics.Table, error) {
	return c.getComponentMetric(ctx, topologyID, executeCountMetric, start, end, false)
}

// getComponentMetric fetches the given system metric for every bolt component
// of the topology, and for every spout component too when includeSpouts is
// set (spouts only report emit counts).
func (c *Client) getComponentMetric(
	ctx context.Context,
	topologyID, metricName string,
	start, end time.Time,
	includeSpouts bool,
) (metrics.Table, error) {
	physicalPlan, err := c.tracker.GetPhysicalPlan(ctx, c.cluster, c.environ, topologyID)
	if err != nil {
		return nil, err
	}

	var components []string
	if includeSpouts {
		for name := range physicalPlan.Spouts {
			components = append(components, name)
		}
	}
	for name := range physicalPlan.Bolts {
		components = append(components, name)
	}
	sort.Strings(components)

	var table metrics.Table
	for _, component := range components {
		timeline, err := c.tracker.GetMetricsTimeline(ctx,
			c.cluster, c.environ, topologyID, component, metricName, start, end)
		if err != nil {
			return nil, err
		}

		for instance, points := range timeline.Timeline[metricName] {
			for ts, value := range points {
				seconds, err := strconv.ParseInt(ts, 10, 64)
				if err != nil {
					return nil, errors.Wrapf(err,
						"trackerclient: malformed timestamp %q for instance %s", ts, instance)
				}

				table = append(table, metrics.Sample{
					Instance:  instance,
					Component: component,
					Time:      time.Unix(seconds, 0).UTC(),
					Value:     value,
				})
			}
		}
	}

	return table, nil
}
