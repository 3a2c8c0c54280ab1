package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamscale/topograph/builder"
	"github.com/streamscale/topograph/graph"
	"github.com/streamscale/topograph/tracker"
)

type fakePlans struct {
	logical  *tracker.LogicalPlan
	physical *tracker.PhysicalPlan
	err      error
}

func (p *fakePlans) GetLogicalPlan(ctx context.Context, cluster, environ, topologyID string) (*tracker.LogicalPlan, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.logical, nil
}

func (p *fakePlans) GetPhysicalPlan(ctx context.Context, cluster, environ, topologyID string) (*tracker.PhysicalPlan, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.physical, nil
}

func newTestServer(plans builder.PlanSource) (*WebServer, *graph.InMemoryStore) {
	store := graph.NewInMemoryStore()
	b := builder.NewBuilder(builder.Options{
		Plans: plans,
		Store: store,
	})

	server := NewWebServer(WebServerOptions{
		Builder:        b,
		DefaultCluster: "local",
		DefaultEnviron: "devel",
	})

	return server, store
}

func wordCountFakePlans() *fakePlans {
	return &fakePlans{
		logical: &tracker.LogicalPlan{
			Spouts: map[string]tracker.SpoutSpecJson{
				"word": {SpoutType: "kafka", SpoutSource: "word-topic"},
			},
			Bolts: map[string]tracker.BoltSpecJson{},
		},
		physical: &tracker.PhysicalPlan{
			Stmgrs: map[string]tracker.StmgrJson{
				"stmgr-1": {ID: "stmgr-1", Host: "host-a", Port: 6001, ShellPort: 6002},
			},
			Spouts: map[string][]string{"word": {"container_1_word_1"}},
			Instances: map[string]tracker.InstancePlacementJson{
				"container_1_word_1": {StmgrID: "stmgr-1"},
			},
		},
	}
}

func TestBuildSnapshotEndpoint(t *testing.T) {
	server, store := newTestServer(wordCountFakePlans())

	body := bytes.NewBufferString(`{"snapshot_ref": "ref-1"}`)
	req := httptest.NewRequest("POST", "/api/v1/topologies/wordcount/snapshots", body)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp buildSnapshotResponseJson
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "wordcount", resp.TopologyID)
	require.Equal(t, "ref-1", resp.SnapshotRef)

	vertices, err := store.FindVertices(context.Background(), graph.Query{
		Props: graph.Properties{"topology_id": "wordcount", "snapshot_ref": "ref-1"},
	})
	require.NoError(t, err)
	require.Len(t, vertices, 3)
}

func TestBuildSnapshotEndpointGeneratesRef(t *testing.T) {
	server, _ := newTestServer(wordCountFakePlans())

	req := httptest.NewRequest("POST", "/api/v1/topologies/wordcount/snapshots", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp buildSnapshotResponseJson
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SnapshotRef)
}

func TestBuildSnapshotEndpointTopologyNotFound(t *testing.T) {
	server, _ := newTestServer(&fakePlans{err: tracker.ErrTopologyNotFound})

	req := httptest.NewRequest("POST", "/api/v1/topologies/unknown/snapshots", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponseJson
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Error)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(wordCountFakePlans())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
