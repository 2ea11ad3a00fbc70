package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/cyclone-relay/internal/adapter/http"
	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/couchcryptid/cyclone-relay/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStatus struct {
	report *domain.RunReport
}

func (m *mockStatus) LastReport() (domain.RunReport, bool) {
	if m.report == nil {
		return domain.RunReport{}, false
	}
	return *m.report, true
}

func newTestServer(readyErr error, report *domain.RunReport) *httpadapter.Server {
	metrics := observability.NewMetricsForTesting()
	metrics.ActiveCyclones.Set(2)
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockStatus{report: report},
		metrics.Gatherer(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("no successful run yet"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no successful run yet", body["error"])
}

func TestStatusBeforeFirstRun(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusReportsLastRun(t *testing.T) {
	started := time.Date(2023, 9, 10, 9, 15, 0, 0, time.UTC)
	report := &domain.RunReport{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Cyclones:   2,
		Updated:    []string{"AL132023"},
		Tracked:    []string{"AL132023"},
		Actions: []domain.ActionResult{
			domain.Ok(domain.ActionPin, "m2"),
			domain.Failed(domain.ActionUnpin, "m1", fmt.Errorf("404")),
		},
	}
	rec := get(t, newTestServer(nil, report), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID     string                `json:"run_id"`
		Succeeded bool                  `json:"succeeded"`
		Cyclones  int                   `json:"cyclones"`
		Updated   []string              `json:"updated"`
		Failures  []domain.ActionResult `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	assert.True(t, body.Succeeded)
	assert.Equal(t, 2, body.Cyclones)
	assert.Equal(t, []string{"AL132023"}, body.Updated)
	require.Len(t, body.Failures, 1)
	assert.Equal(t, "m1", body.Failures[0].Target)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cyclone_relay_active_cyclones 2")
}
