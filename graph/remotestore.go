package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrStoreFailure indicates a failed mutation or query against the remote
// graph service.
var ErrStoreFailure = errors.New("graph: store request failed")

type RemoteStoreOptions struct {
	HttpClient *http.Client
	GraphHost  string
	Logger     *zap.Logger
}

// RemoteStore talks to a graph service over its HTTP mutation/query
// protocol.  The connection is verified once at construction; individual
// operations are not retried.
type RemoteStore struct {
	httpClient *http.Client
	graphHost  string
	logger     *zap.Logger
}

var _ Store = (*RemoteStore)(nil)

func NewRemoteStore(ctx context.Context, opts RemoteStoreOptions) (*RemoteStore, error) {
	httpClient := opts.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &RemoteStore{
		httpClient: httpClient,
		graphHost:  opts.GraphHost,
		logger:     logger,
	}

	logger.Info("connecting to graph service", zap.String("graphHost", opts.GraphHost))

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	err := backoff.Retry(func() error {
		return s.ping(ctx)
	}, b)
	if err != nil {
		return nil, errors.Wrap(err, "graph: failed to reach graph service")
	}

	return s, nil
}

func (s *RemoteStore) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.graphHost+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}

	err = resp.Body.Close()
	if err != nil {
		s.logger.Debug("unexpected close error", zap.Error(err))
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrStoreFailure, "health check returned %d", resp.StatusCode)
	}

	return nil
}

func (s *RemoteStore) doPostJson(ctx context.Context, path string, body, result any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "graph: failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.graphHost+path, bytes.NewReader(encoded))
	if err != nil {
		return errors.Wrap(err, "graph: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "graph: request failed")
	}

	var decodeErr error
	if result != nil {
		decoder := json.NewDecoder(resp.Body)
		decodeErr = decoder.Decode(result)
	}

	err = resp.Body.Close()
	if err != nil {
		s.logger.Error("unexpected close error", zap.Error(err))
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrStoreFailure, "%s returned %d", path, resp.StatusCode)
	}

	if decodeErr != nil {
		return errors.Wrap(decodeErr, "graph: malformed response")
	}

	return nil
}

type vertexJson struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
}

type addVertexRequestJson struct {
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
}

type addEdgeRequestJson struct {
	From       string     `json:"from"`
	Label      string     `json:"label"`
	To         string     `json:"to"`
	Properties Properties `json:"properties,omitempty"`
}

type findVerticesRequestJson struct {
	Label      string     `json:"label,omitempty"`
	Properties Properties `json:"properties"`
}

type outVerticesRequestJson struct {
	From      string `json:"from"`
	EdgeLabel string `json:"edge_label"`
}

type verticesResponseJson struct {
	Vertices []vertexJson `json:"vertices"`
}

type hasEdgeRequestJson struct {
	From  string `json:"from"`
	Label string `json:"label"`
	To    string `json:"to"`
}

type hasEdgeResponseJson struct {
	Exists bool `json:"exists"`
}

func (s *RemoteStore) AddVertex(ctx context.Context, label string, props Properties) (*Vertex, error) {
	var created vertexJson
	err := s.doPostJson(ctx, "/graph/vertices", addVertexRequestJson{
		Label:      label,
		Properties: props,
	}, &created)
	if err != nil {
		return nil, err
	}

	return &Vertex{
		ID:    created.ID,
		Label: label,
		Props: props,
	}, nil
}

func (s *RemoteStore) AddEdge(ctx context.Context, from *Vertex, label string, to *Vertex, props Properties) error {
	return s.doPostJson(ctx, "/graph/edges", addEdgeRequestJson{
		From:       from.ID,
		Label:      label,
		To:         to.ID,
		Properties: props,
	}, nil)
}

func (s *RemoteStore) FindVertices(ctx context.Context, q Query) ([]*Vertex, error) {
	var found verticesResponseJson
	err := s.doPostJson(ctx, "/graph/vertices/find", findVerticesRequestJson{
		Label:      q.Label,
		Properties: q.Props,
	}, &found)
	if err != nil {
		return nil, err
	}

	return verticesFromJson(found.Vertices), nil
}

func (s *RemoteStore) OutVertices(ctx context.Context, from *Vertex, edgeLabel string) ([]*Vertex, error) {
	var found verticesResponseJson
	err := s.doPostJson(ctx, "/graph/vertices/out", outVerticesRequestJson{
		From:      from.ID,
		EdgeLabel: edgeLabel,
	}, &found)
	if err != nil {
		return nil, err
	}

	return verticesFromJson(found.Vertices), nil
}

func (s *RemoteStore) HasEdge(ctx context.Context, from *Vertex, label string, to *Vertex) (bool, error) {
	var resp hasEdgeResponseJson
	err := s.doPostJson(ctx, "/graph/edges/exists", hasEdgeRequestJson{
		From:  from.ID,
		Label: label,
		To:    to.ID,
	}, &resp)
	if err != nil {
		return false, err
	}

	return resp.Exists, nil
}

func verticesFromJson(vertices []vertexJson) []*Vertex {
	var out []*Vertex
	for _, v := range vertices {
		out = append(out, &Vertex{
			ID:    v.ID,
			Label: v.Label,
			Props: v.Properties,
		})
	}
	return out
}
