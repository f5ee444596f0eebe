package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdash/internal/config"
	"bankdash/internal/shared/testutil"
	"bankdash/pkg/contracts/domain"
)

func testConfig(t *testing.T) (*config.Config, *config.Paths) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Logging.Output = "console"
	cfg.Paths = config.PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		LogsDir:    filepath.Join(dir, "logs"),
		ExportsDir: filepath.Join(dir, "exports"),
	}

	paths := config.ResolvePaths(dir, cfg.Paths)
	require.NoError(t, paths.EnsureDirectories())
	return cfg, paths
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg, paths := testConfig(t)
	logger, _ := testutil.NewTestLogger(t)

	application, err := newApplication(cfg, paths, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = application.OTelProviders.Shutdown(context.Background())
	})
	return application
}

func upload(t *testing.T, handler http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNewApplication_Wiring(t *testing.T) {
	application := newTestApp(t)

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.AnalysisService)
	assert.Equal(t, application.Config.Analysis.MaxDatasets, application.Store.Capacity())
	assert.Equal(t, "127.0.0.1:0", application.Server.Addr)
	assert.NotNil(t, application.OTelProviders.PrometheusHTTP)
}

func TestApplication_DatasetWorkflow(t *testing.T) {
	application := newTestApp(t)
	router := application.Router

	rec := upload(t, router, "customers.csv", testutil.CustomersCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var overview domain.DatasetOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	id := overview.Dataset.ID
	require.NotEmpty(t, id)
	assert.Equal(t, testutil.CustomersRows, overview.Dataset.Rows)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// derive features with a fixed reference date
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+id+"/features",
		strings.NewReader(`{"reference_date":"2024-06-30","preview_rows":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var features domain.FeaturesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &features))
	assert.Contains(t, features.NewColumns, domain.ColAgeGroup)
	assert.Contains(t, features.NewColumns, domain.ColCustomerTenure)
	assert.Len(t, features.Preview.Rows, 2)
	assert.Equal(t, 2, features.Dataset.Revision)

	for _, path := range []string{"", "/geography", "/distributions", "/correlations?top=3"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "customers_")
	assert.Contains(t, rec.Body.String(), domain.ColAgeGroup)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	var list domain.DatasetList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplication_UploadRejections(t *testing.T) {
	application := newTestApp(t)

	tests := []struct {
		name       string
		file       string
		content    string
		wantStatus int
		wantCode   string
	}{
		{"unsupported extension", "customers.json", `{"a":1}`, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"},
		{"empty file", "customers.csv", "", http.StatusUnprocessableEntity, "DATASET_PARSE_FAILED"},
		{"unterminated quote", "customers.csv", "Age,Nationality\n30,\"European\n", http.StatusUnprocessableEntity, "DATASET_PARSE_FAILED"},
		{"not a workbook", "customers.xlsx", "plain text", http.StatusUnprocessableEntity, "DATASET_PARSE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, application.Router, tt.file, tt.content)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantCode, problem["error_code"])
			assert.NotEmpty(t, problem["details"])
		})
	}
}

func TestApplication_RouterFallbacks(t *testing.T) {
	application := newTestApp(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/datasets", http.StatusMethodNotAllowed},
		{"health", http.MethodGet, "/api/health", http.StatusOK},
		{"readiness", http.MethodGet, "/api/health/ready", http.StatusOK},
		{"version", http.MethodGet, "/api/version", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			application.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestApplication_MetricsEndpoint(t *testing.T) {
	application := newTestApp(t)

	rec := upload(t, application.Router, "customers.csv", testutil.CustomersCSV)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "datasets_uploaded")
	assert.Contains(t, rec.Body.String(), "http_requests")
}

func TestApplication_StartupHealthCheck(t *testing.T) {
	application := newTestApp(t)
	assert.NoError(t, application.performStartupHealthCheck(context.Background()))

	application.Paths.ExportsDir = filepath.Join(t.TempDir(), "missing", "exports")
	err := application.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Exports directory not writable")
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	application := newTestApp(t)

	// reserve a free port so the server starts on a known address
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	application.Server.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + config.HealthEndpoint + "/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
