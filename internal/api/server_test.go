package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"clusterlabel/internal/config"
	"clusterlabel/internal/labeling"
	"clusterlabel/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	calls     atomic.Int32
	cancelled atomic.Int32
}

func (c *countingEngine) Reconcile(ctx context.Context, docs []labeling.Document, opts labeling.Options) labeling.Decision {
	c.calls.Add(1)
	if ctx.Err() != nil {
		c.cancelled.Add(1)
	}
	return labeling.Decision{
		ClusterLabel:    "Besluit",
		Status:          labeling.StatusAuto,
		SimilarityScore: 1,
		Labels:          []labeling.LabelRecord{{Filename: docs[0].Filename, Label: "Besluit", Explanation: "één"}},
	}
}

const fixtureCSV = "asset_id,filename,firstpagetxt,cluster_id\n1,a.pdf,x,1\n2,b.pdf,y,2\n3,c.pdf,z,1\n4,d.pdf,w,3\n"

func newTestServer(t *testing.T) (*Server, *countingEngine, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "core_assets_sample.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o644))
	cfg := config.Config{DataSource: config.SourceCSV, DataDir: dir, CSVPath: path, TableName: "core_assets"}
	eng := &countingEngine{}
	s := NewServerWith(cfg, storage.NewConfigRegistry(cfg, nil), eng, nil, nil)
	t.Cleanup(s.Close)
	return s, eng, dir
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec, body := do(t, s.Routes(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestReadDataAndUnlabeled(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()

	rec, body := do(t, h, http.MethodGet, "/data/read")
	require.Equal(t, http.StatusOK, rec.Code)
	ov := body["overview"].(map[string]any)
	assert.Equal(t, float64(4), ov["total_documents"])
	assert.Equal(t, float64(3), ov["total_clusters"])
	assert.Equal(t, "csv", body["data_source"])

	rec, body = do(t, h, http.MethodGet, "/data/unlabeled-clusters")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, body["unlabeled_cluster_ids"])

	rec, _ = do(t, h, http.MethodGet, "/data/read?source=parquet")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInferSingle(t *testing.T) {
	s, eng, _ := newTestServer(t)
	h := s.Routes()

	rec, body := do(t, h, http.MethodPost, "/cluster/infersingle?cluster_id=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Besluit", body["cluster_label"])
	assert.Equal(t, "Auto", body["status"])

	rec, body = do(t, h, http.MethodPost, "/cluster/infersingle?cluster_id=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["skip"])
	assert.Equal(t, "Cluster 1 already labeled", body["message"])
	assert.Equal(t, int32(1), eng.calls.Load())

	rec, body = do(t, h, http.MethodPost, "/cluster/infersingle?cluster_id=99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CL-API-4004", body["error"].(map[string]any)["code"])

	rec, _ = do(t, h, http.MethodPost, "/cluster/infersingle?cluster_id=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/cluster/infersingle?cluster_id=1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInferSingleOutlivesCancelledRequest(t *testing.T) {
	s, eng, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cluster/infersingle?cluster_id=2", nil).WithContext(ctx)
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), eng.calls.Load())
	assert.Equal(t, int32(0), eng.cancelled.Load())
}

func TestInferLimitAndAll(t *testing.T) {
	s, eng, _ := newTestServer(t)
	h := s.Routes()

	rec, _ := do(t, h, http.MethodPost, "/cluster/infer?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/cluster/infer?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["processed"])
	assert.Equal(t, int32(2), eng.calls.Load())

	// No limit falls back to the first ten unlabeled clusters.
	rec, body = do(t, h, http.MethodPost, "/cluster/infer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["processed"])
	results := body["results"].([]any)
	assert.Equal(t, float64(3), results[0].(map[string]any)["cluster_id"])
	assert.Equal(t, false, results[0].(map[string]any)["skip"])

	rec, body = do(t, h, http.MethodPost, "/cluster/infer?all=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["processed"])

	rec, body = do(t, h, http.MethodGet, "/data/read")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(100), body["overview"].(map[string]any)["coverage_percent"])
}

func TestResetRequiresConfirm(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()
	do(t, h, http.MethodPost, "/cluster/infer?all=true")

	rec, body := do(t, h, http.MethodPost, "/data/reset")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Reset requires confirm=true.", body["error"].(map[string]any)["message"])

	rec, body = do(t, h, http.MethodPost, "/data/reset?confirm=true&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["reset_clusters"])

	rec, body = do(t, h, http.MethodPost, "/data/reset?confirm=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["reset_clusters"])
}

func TestExportAndDownload(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()
	do(t, h, http.MethodPost, "/cluster/infer?all=true")

	rec, body := do(t, h, http.MethodGet, "/results/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/download/core_assets_sample.csv", body["file_source"])

	rec, body = do(t, h, http.MethodGet, "/results/export?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["records"], 4)

	rec, _ = do(t, h, http.MethodGet, "/results/export?format=xml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/results/export/summary?sort=label_count")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "Besluit", summary["dominant_label"])
	assert.Equal(t, float64(100), summary["dominant_label_ratio"])

	rec, _ = do(t, h, http.MethodGet, "/download/core_assets_sample.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cluster_label,label_status,labels_used")

	rec, _ = do(t, h, http.MethodGet, "/download/missing.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAsyncWithoutTemporal(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec, body := do(t, s.Routes(), http.MethodPost, "/cluster/infer/async?limit=2")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "CL-API-5030", body["error"].(map[string]any)["code"])

	rec, _ = do(t, s.Routes(), http.MethodGet, "/cluster/infer/async/abc")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestToAPIErrorHidesInternals(t *testing.T) {
	e := toAPIError(http.StatusInternalServerError, assert.AnError)
	assert.Equal(t, "CL-API-5000", e.Code)
	e = toAPIError(http.StatusInternalServerError, os.ErrNotExist)
	assert.NotContains(t, e.Message, "file does not exist")
}
