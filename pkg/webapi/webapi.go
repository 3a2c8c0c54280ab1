// This file handles the HTTP surface of the service: snapshot build
// triggers, metrics and health.
package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/streamscale/topograph/builder"
	"github.com/streamscale/topograph/graph"
	"github.com/streamscale/topograph/pkg/buildmetrics"
	"github.com/streamscale/topograph/tracker"
)

type WebServerOptions struct {
	Logger         *zap.Logger
	ListenAddress  string
	Builder        *builder.Builder
	DefaultCluster string
	DefaultEnviron string
}

type WebServer struct {
	logger         *zap.Logger
	listenAddress  string
	builder        *builder.Builder
	defaultCluster string
	defaultEnviron string
	httpServer     *http.Server
}

func NewWebServer(opts WebServerOptions) *WebServer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebServer{
		logger:         logger,
		listenAddress:  opts.ListenAddress,
		builder:        opts.Builder,
		defaultCluster: opts.DefaultCluster,
		defaultEnviron: opts.DefaultEnviron,
	}
}

type buildSnapshotRequestJson struct {
	SnapshotRef string `json:"snapshot_ref"`
}

type buildSnapshotResponseJson struct {
	TopologyID  string `json:"topology_id"`
	SnapshotRef string `json:"snapshot_ref"`
}

type errorResponseJson struct {
	Error string `json:"error"`
}

func (w *WebServer) writeJson(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	err := json.NewEncoder(rw).Encode(body)
	if err != nil {
		w.logger.Debug("failed to write response body", zap.Error(err))
	}
}

func (w *WebServer) writeError(rw http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrTopologyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalidInstanceName):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrVertexNotFound):
		status = http.StatusConflict
	}

	w.writeJson(rw, status, errorResponseJson{Error: err.Error()})
}

func (w *WebServer) handleBuildSnapshot(rw http.ResponseWriter, r *http.Request) {
	topologyID := mux.Vars(r)["topologyID"]

	cluster := r.URL.Query().Get("cluster")
	if cluster == "" {
		cluster = w.defaultCluster
	}

	environ := r.URL.Query().Get("environ")
	if environ == "" {
		environ = w.defaultEnviron
	}

	// the body is optional, an empty or absent one gets a generated ref
	var reqBody buildSnapshotRequestJson
	_ = json.NewDecoder(r.Body).Decode(&reqBody)

	snapshotRef := reqBody.SnapshotRef
	if snapshotRef == "" {
		snapshotRef = uuid.NewString()
	}

	buildmetrics.BuildsTotal.Inc()

	err := w.builder.BuildSnapshot(r.Context(), topologyID, snapshotRef, cluster, environ)
	if err != nil {
		buildmetrics.BuildFailuresTotal.Inc()
		w.logger.Error("snapshot build failed",
			zap.String("topology", topologyID),
			zap.String("snapshotRef", snapshotRef),
			zap.Error(err))
		w.writeError(rw, err)
		return
	}

	w.writeJson(rw, http.StatusOK, buildSnapshotResponseJson{
		TopologyID:  topologyID,
		SnapshotRef: snapshotRef,
	})
}

func (w *WebServer) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
	_, err := rw.Write([]byte("ok"))
	if err != nil {
		w.logger.Debug("failed to write health response", zap.Error(err))
	}
}

func (w *WebServer) handleRoot(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
	_, err := rw.Write([]byte("Welcome to the topograph internal webapi"))
	if err != nil {
		w.logger.Debug("failed to write generic root response", zap.Error(err))
	}
}

// Router builds the route table.  Exposed separately so tests can drive the
// handlers without a listener.
func (w *WebServer) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/v1/topologies/{topologyID}/snapshots", w.handleBuildSnapshot).Methods("POST")
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", w.handleHealth)
	r.HandleFunc("/", w.handleRoot)

	return cors.Default().Handler(r)
}

func (w *WebServer) ListenAndServe() error {
	w.httpServer = &http.Server{
		Handler: w.Router(),
		Addr:    w.listenAddress,
		// builds can run long, so only bound the read side
		ReadTimeout: 10 * time.Second,
	}

	return w.httpServer.ListenAndServe()
}

func (w *WebServer) Shutdown(ctx context.Context) error {
	if w.httpServer == nil {
		return nil
	}

	return w.httpServer.Shutdown(ctx)
}
