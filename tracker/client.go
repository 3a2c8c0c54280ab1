package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrTopologyNotFound indicates the tracker does not know the requested
// topology/cluster/environ combination.
var ErrTopologyNotFound = errors.New("tracker: topology not found")

type ClientOptions struct {
	HttpClient *http.Client
	TrackerURL string
	Logger     *zap.Logger
}

// Client fetches plan documents from a topology tracker service.
type Client struct {
	httpClient *http.Client
	trackerURL string
	logger     *zap.Logger
}

func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: httpClient,
		trackerURL: opts.TrackerURL,
		logger:     logger,
	}
}

// every tracker response is wrapped in this envelope
type envelopeJson struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) doGetResult(ctx context.Context, path string, params url.Values, result any) error {
	reqURL := c.trackerURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "tracker: failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "tracker: request failed")
	}

	var envelope envelopeJson
	decoder := json.NewDecoder(resp.Body)
	decodeErr := decoder.Decode(&envelope)

	err = resp.Body.Close()
	if err != nil {
		c.logger.Error("unexpected close error", zap.Error(err))
	}

	if decodeErr != nil {
		return errors.Wrap(decodeErr, "tracker: malformed response")
	}

	if envelope.Status != "success" {
		return errors.Wrapf(ErrTopologyNotFound, "tracker: %s", envelope.Message)
	}

	err = json.Unmarshal(envelope.Result, result)
	if err != nil {
		return errors.Wrap(err, "tracker: malformed plan document")
	}

	return nil
}

func planParams(cluster, environ, topologyID string) url.Values {
	params := url.Values{}
	params.Set("cluster", cluster)
	params.Set("environ", environ)
	params.Set("topology", topologyID)
	return params
}

// GetLogicalPlan fetches the logical plan document for the given topology.
func (c *Client) GetLogicalPlan(
	ctx context.Context,
	cluster, environ, topologyID string,
) (*LogicalPlan, error) {
	c.logger.Debug("fetching logical plan",
		zap.String("topology", topologyID),
		zap.String("cluster", cluster),
		zap.String("environ", environ))

	var plan LogicalPlan
	err := c.doGetResult(ctx, "/topologies/logicalplan",
		planParams(cluster, environ, topologyID), &plan)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

// GetPhysicalPlan fetches the physical plan document for the given topology.
func (c *Client) GetPhysicalPlan(
	ctx context.Context,
	cluster, environ, topologyID string,
) (*PhysicalPlan, error) {
	c.logger.Debug("fetching physical plan",
		zap.String("topology", topologyID),
		zap.String("cluster", cluster),
		zap.String("environ", environ))

	var plan PhysicalPlan
	err := c.doGetResult(ctx, "/topologies/physicalplan",
		planParams(cluster, environ, topologyID), &plan)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

// MetricsTimeline is the per-instance timeline of one system metric for one
// component.  Timeline maps metric name to instance name to unix-second
// timestamp to value.
type MetricsTimeline struct {
	Component string                                   `json:"component"`
	StartTime int64                                    `json:"starttime"`
	EndTime   int64                                    `json:"endtime"`
	Timeline  map[string]map[string]map[string]float64 `json:"timeline"`
}

// GetMetricsTimeline fetches the timeline of a single metric for every
// instance of the given component.
func (c *Client) GetMetricsTimeline(
	ctx context.Context,
	cluster, environ, topologyID, component, metricName string,
	start, end time.Time,
) (*MetricsTimeline, error) {
	c.logger.Debug("fetching metrics timeline",
		zap.String("topology", topologyID),
		zap.String("component", component),
		zap.String("metric", metricName))

	params := planParams(cluster, environ, topologyID)
	params.Set("component", component)
	params.Set("metricname", metricName)
	params.Set("starttime", strconv.FormatInt(start.Unix(), 10))
	params.Set("endtime", strconv.FormatInt(end.Unix(), 10))

	var timeline MetricsTimeline
	err := c.doGetResult(ctx, "/topologies/metricstimeline", params, &timeline)
	if err != nil {
		return nil, err
	}

	return &timeline, nil
}
