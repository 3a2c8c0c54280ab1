package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestGetLogicalPlan(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"cluster":  r.URL.Query().Get("cluster"),
			"environ":  r.URL.Query().Get("environ"),
			"topology": r.URL.Query().Get("topology"),
		}

		_, _ = rw.Write([]byte(`{
			"status": "success",
			"result": {
				"spouts": {
					"word": {"spout_type": "kafka", "spout_source": "word-topic"}
				},
				"bolts": {
					"exclaim1": {
						"inputs": [
							{"component_name": "word", "stream_name": "default", "grouping": "SHUFFLE"}
						]
					}
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{TrackerURL: server.URL})

	plan, err := client.GetLogicalPlan(context.Background(), "local", "devel", "wordcount")
	require.NoError(t, err)

	require.Equal(t, "/topologies/logicalplan", gotPath)
	require.Equal(t, "local", gotQuery["cluster"])
	require.Equal(t, "devel", gotQuery["environ"])
	require.Equal(t, "wordcount", gotQuery["topology"])

	require.Len(t, plan.Spouts, 1)
	require.Equal(t, "kafka", plan.Spouts["word"].SpoutType)
	require.Equal(t, "word-topic", plan.Spouts["word"].SpoutSource)

	require.Len(t, plan.Bolts, 1)
	require.Len(t, plan.Bolts["exclaim1"].Inputs, 1)
	require.Equal(t, "word", plan.Bolts["exclaim1"].Inputs[0].ComponentName)
	require.Equal(t, "default", plan.Bolts["exclaim1"].Inputs[0].StreamName)
	require.Equal(t, "SHUFFLE", plan.Bolts["exclaim1"].Inputs[0].Grouping)
}

func TestGetPhysicalPlan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/topologies/physicalplan", r.URL.Path)

		_, _ = rw.Write([]byte(`{
			"status": "success",
			"result": {
				"stmgrs": {
					"stmgr-1": {"id": "stmgr-1", "host": "host-a", "port": 6001, "shell_port": 6002}
				},
				"spouts": {"word": ["container_1_word_1"]},
				"bolts": {"exclaim1": ["container_1_exclaim1_2"]},
				"instances": {
					"container_1_word_1": {"stmgrId": "stmgr-1"},
					"container_1_exclaim1_2": {"stmgrId": "stmgr-1"}
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{TrackerURL: server.URL})

	plan, err := client.GetPhysicalPlan(context.Background(), "local", "devel", "wordcount")
	require.NoError(t, err)

	require.Len(t, plan.Stmgrs, 1)
	require.Equal(t, "host-a", plan.Stmgrs["stmgr-1"].Host)
	require.Equal(t, 6001, plan.Stmgrs["stmgr-1"].Port)
	require.Equal(t, 6002, plan.Stmgrs["stmgr-1"].ShellPort)

	require.Equal(t, []string{"container_1_word_1"}, plan.Spouts["word"])
	require.Equal(t, []string{"container_1_exclaim1_2"}, plan.Bolts["exclaim1"])
	require.Equal(t, "stmgr-1", plan.Instances["container_1_word_1"].StmgrID)
}

func TestGetLogicalPlanNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(`{
			"status": "failure",
			"message": "topology wordcount not found",
			"result": null
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{TrackerURL: server.URL})

	_, err := client.GetLogicalPlan(context.Background(), "local", "devel", "wordcount")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTopologyNotFound))
}

func TestGetLogicalPlanTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(ClientOptions{TrackerURL: server.URL})

	_, err := client.GetLogicalPlan(context.Background(), "local", "devel", "wordcount")
	require.Error(t, err)
}

func TestGetMetricsTimeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/topologies/metricstimeline", r.URL.Path)
		require.Equal(t, "exclaim1", r.URL.Query().Get("component"))
		require.Equal(t, "__execute-count", r.URL.Query().Get("metricname"))
		require.Equal(t, "1000", r.URL.Query().Get("starttime"))
		require.Equal(t, "1600", r.URL.Query().Get("endtime"))

		_, _ = rw.Write([]byte(`{
			"status": "success",
			"result": {
				"component": "exclaim1",
				"starttime": 1000,
				"endtime": 1600,
				"timeline": {
					"__execute-count": {
						"container_1_exclaim1_2": {"1000": 42, "1060": 57}
					}
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{TrackerURL: server.URL})

	timeline, err := client.GetMetricsTimeline(context.Background(),
		"local", "devel", "wordcount", "exclaim1", "__execute-count",
		time.Unix(1000, 0), time.Unix(1600, 0))
	require.NoError(t, err)

	require.Equal(t, "exclaim1", timeline.Component)
	points := timeline.Timeline["__execute-count"]["container_1_exclaim1_2"]
	require.Equal(t, 42.0, points["1000"])
	require.Equal(t, 57.0, points["1060"])
}
