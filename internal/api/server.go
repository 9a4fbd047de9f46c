package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"clusterlabel/internal/batch"
	"clusterlabel/internal/config"
	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"
	"clusterlabel/internal/providers"
	"clusterlabel/internal/report"
	"clusterlabel/internal/storage"
	"clusterlabel/internal/util"
	"clusterlabel/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	asyncWorkflowPrefix = "cluster-label-"
	defaultInferLimit   = 10
)

type Server struct {
	cfg      config.Config
	stores   *storage.Registry
	orch     *batch.Orchestrator
	temporal tclient.Client
	logger   *zap.Logger

	// runMu serializes labeling and reset runs: the CSV store rewrites the
	// whole file on every decision.
	runMu  sync.Mutex
	single singleflight.Group
}

// NewServer wires providers, stores and Temporal from cfg. Temporal is
// optional: without it the async endpoints answer 503.
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pm, err := providers.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	var tc tclient.Client
	if cfg.TemporalAddress != "" {
		tc, err = tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			logger.Warn("temporal unavailable, async labeling disabled", zap.String("address", cfg.TemporalAddress), zap.Error(err))
			tc = nil
		}
	}
	engine := labeling.NewEngineFromConfig(cfg, pm, logger)
	return NewServerWith(cfg, storage.NewConfigRegistry(cfg, logger), engine, tc, logger), nil
}

func NewServerWith(cfg config.Config, stores *storage.Registry, engine batch.Reconciler, tc tclient.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		stores:   stores,
		orch:     batch.NewOrchestrator(engine, labeling.Options{}, logger),
		temporal: tc,
		logger:   logger,
	}
}

func (s *Server) Close() {
	s.stores.Close()
	if s.temporal != nil {
		s.temporal.Close()
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/data/read", s.handleReadData)
	mux.HandleFunc("/data/unlabeled-clusters", s.handleUnlabeledClusters)
	mux.HandleFunc("/data/reset", s.handleReset)
	mux.HandleFunc("/cluster/infersingle", s.handleInferSingle)
	mux.HandleFunc("/cluster/infer", s.handleInfer)
	mux.HandleFunc("/cluster/infer/async", s.handleInferAsync)
	mux.HandleFunc("/cluster/infer/async/", s.handleInferAsyncProgress)
	mux.HandleFunc("/results/export", s.handleExport)
	mux.HandleFunc("/results/export/summary", s.handleExportSummary)
	mux.HandleFunc("/download/", s.handleDownload)
	return withCORS(withRequestLog(s.logger, mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// rows loads every row of the requested source. An empty table is a 404.
func (s *Server) rows(w http.ResponseWriter, r *http.Request) (storage.Store, []models.Row, bool) {
	store, err := s.stores.Get(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return nil, nil, false
	}
	rows, err := store.Rows(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return nil, nil, false
	}
	if len(rows) == 0 {
		writeErr(w, http.StatusNotFound, errNoData)
		return nil, nil, false
	}
	return store, rows, true
}

func (s *Server) handleReadData(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	_, rows, ok := s.rows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data_source": s.stores.Source(r.URL.Query().Get("source")),
		"overview":    report.Overview(rows),
	})
}

func (s *Server) handleUnlabeledClusters(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	store, err := s.stores.Get(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	rows, err := store.UnlabeledRows(r.Context(), 0)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlabeled_cluster_ids": batch.Targets(batch.NewSnapshot(rows), 0)})
}

func (s *Server) handleInferSingle(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("cluster_id")), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("cluster_id must be an integer: %w", err))
		return
	}
	source := s.stores.Source(r.URL.Query().Get("source"))

	// Concurrent requests for the same cluster share one labeling call. The
	// shared call outlives the request that started it, since other callers
	// may still be waiting on its result.
	ctx := context.WithoutCancel(r.Context())
	v, err, shared := s.single.Do(source+":"+strconv.FormatInt(id, 10), func() (any, error) {
		store, err := s.stores.Get(ctx, source)
		if err != nil {
			return nil, err
		}
		rows, err := store.ClusterRows(ctx, id)
		if err != nil {
			return nil, err
		}
		s.runMu.Lock()
		defer s.runMu.Unlock()
		return s.orch.Label(ctx, batch.NewSnapshot(rows), id, store), nil
	})
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if shared {
		s.logger.Debug("single-cluster request deduplicated", zap.Int64("cluster_id", id))
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	limit, all, err := limitParams(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if !all && limit <= 0 {
		if r.URL.Query().Has("limit") {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("limit must be positive, or pass all=true"))
			return
		}
		limit = defaultInferLimit
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	store, rows, ok := s.rows(w, r)
	if !ok {
		return
	}
	snap := batch.NewSnapshot(rows)
	ids := batch.Targets(snap, limit)
	started := time.Now()
	outcomes := s.orch.Run(r.Context(), snap, ids, store)
	s.logger.Info("labeling run finished",
		zap.Int("clusters", len(ids)),
		zap.Duration("elapsed", time.Since(started)))
	writeJSON(w, http.StatusOK, map[string]any{"processed": len(outcomes), "results": outcomes})
}

func (s *Server) handleInferAsync(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errNoTemporal)
		return
	}
	limit, _, err := limitParams(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    asyncWorkflowPrefix + runID,
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.ClusterLabelWorkflow, workflows.ClusterLabelInput{
		RunID:  runID,
		Source: r.URL.Query().Get("source"),
		Limit:  limit,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "workflow_id": we.GetID(), "temporal_run_id": we.GetRunID()})
}

func (s *Server) handleInferAsyncProgress(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errNoTemporal)
		return
	}
	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/cluster/infer/async/"), "/")
	if runID == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), asyncWorkflowPrefix+runID, "", workflows.QueryGetLabelProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	var prog workflows.ClusterLabelProgress
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q: use csv or json", format))
		return
	}
	store, rows, ok := s.rows(w, r)
	if !ok {
		return
	}
	if format == "json" {
		writeJSON(w, http.StatusOK, map[string]any{"records": rows})
		return
	}
	name, err := s.exportFile(store, rows)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_source": "/download/" + name,
		"message":     "File available for download",
	})
}

func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	store, rows, ok := s.rows(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	summary := report.Summary(rows, q.Get("sort"), q.Get("filter"))
	name, err := s.exportFile(store, rows)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":     summary,
		"file_source": "/download/" + name,
	})
}

// exportFile returns the name of a downloadable CSV under the data dir. The
// CSV store's own file is served as is; other stores are exported first.
func (s *Server) exportFile(store storage.Store, rows []models.Row) (string, error) {
	if cs, ok := store.(*storage.CSVStore); ok {
		path, err := filepath.Abs(cs.Path())
		if err != nil {
			return "", err
		}
		dir, err := filepath.Abs(s.cfg.DataDir)
		if err != nil {
			return "", err
		}
		if filepath.Dir(path) == dir {
			return filepath.Base(path), nil
		}
	}
	name := s.cfg.TableName + "_db_export.csv"
	if err := storage.WriteRowsCSV(filepath.Join(s.cfg.DataDir, name), rows); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	path, err := util.SafeJoin(s.cfg.DataDir, strings.TrimPrefix(r.URL.Path, "/download/"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeErr(w, http.StatusNotFound, fmt.Errorf("file not found"))
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirm {
		writeErr(w, http.StatusBadRequest, util.ErrResetNotConfirmed)
		return
	}
	limit, _, err := limitParams(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	store, err := s.stores.Get(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	n, err := store.ResetLabels(r.Context(), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("labels reset", zap.Int("clusters", n), zap.Int("limit", limit))
	writeJSON(w, http.StatusOK, map[string]any{"reset_clusters": n})
}

func limitParams(r *http.Request) (limit int, all bool, err error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("all")); raw != "" {
		if all, err = strconv.ParseBool(raw); err != nil {
			return 0, false, fmt.Errorf("all must be a boolean: %w", err)
		}
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, false, fmt.Errorf("limit must be a non-negative integer")
		}
	}
	if all {
		limit = 0
	}
	return limit, all, nil
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrClusterNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
