package http

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridscope/settleaudit/internal/audit"
)

func testServer(t *testing.T, reportPath string) *Server {
	t.Helper()

	summary := audit.Summary{
		RunID:   "run-http-test",
		Total:   3,
		WithObs: 2,
		Skipped: 1,
		Passed:  2,
	}
	results := []audit.Result{
		{Index: 0, Status: audit.StatusPassed},
		{Index: 1, Status: audit.StatusPassed},
		{Index: 2, Status: audit.StatusSkipped},
	}

	cfg := DefaultServerConfig()
	cfg.Port = 0 // ephemeral, the tests drive Handler() directly
	s, err := NewServer(cfg, summary, results, reportPath, prometheus.NewRegistry())
	require.NoError(t, err)
	return s
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "run-http-test", body["run_id"])
}

func TestHandleSummary(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got audit.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Skipped)
}

func TestHandleSettlements(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/settlements", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, audit.StatusSkipped, got[2].Status)
}

func TestHandleReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>report</html>"), 0o644))
	s := testServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report")
}

func TestHandleReport_NoneGenerated(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServer_PortBusy(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer held.Close()

	cfg := DefaultServerConfig()
	cfg.Port = held.Addr().(*net.TCPAddr).Port
	_, err = NewServer(cfg, audit.Summary{}, nil, "", prometheus.NewRegistry())
	assert.Error(t, err)
}
