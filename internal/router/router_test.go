package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/config"
	"github.com/stemsi/degree-backend/internal/handler"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/model"
	"github.com/stemsi/degree-backend/internal/response"
	"github.com/stemsi/degree-backend/internal/service"
	"github.com/stemsi/degree-backend/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const degreeID = "0b6f3c58-2a51-4f0e-9c7d-8e4b1f2a6d33"

// routeRecorder is a DegreeService that records which operation was routed to.
type routeRecorder struct{ called string }

func (r *routeRecorder) Create(context.Context, model.DegreeInput) (*model.Degree, error) {
	r.called = "create"
	return &model.Degree{ID: "x"}, nil
}

func (r *routeRecorder) Get(context.Context, string) (*model.Degree, error) {
	r.called = "get"
	return &model.Degree{ID: "x"}, nil
}

func (r *routeRecorder) Update(context.Context, string, model.DegreeInput) (*model.Degree, error) {
	r.called = "update"
	return &model.Degree{ID: "x"}, nil
}

func (r *routeRecorder) Delete(context.Context, string) error {
	r.called = "delete"
	return nil
}

func (r *routeRecorder) Search(context.Context, string) (*model.SearchResult, error) {
	r.called = "search"
	return &model.SearchResult{Hits: []model.SearchHit{}, Empty: true}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

var _ service.DegreeService = (*routeRecorder)(nil)

func newTestRouter(t *testing.T) (*gin.Engine, *routeRecorder) {
	t.Helper()
	validator.Setup()
	rec := &routeRecorder{}
	m := metrics.NewNop()
	handlers := &Handlers{
		Degree: handler.NewDegreeHandler(rec, zerolog.Nop()),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{"record_store": okPinger{}}, zerolog.Nop()),
	}
	return SetupRouter(handlers, m, &config.Config{GinMode: gin.TestMode}), rec
}

func TestRoutes(t *testing.T) {
	body := `{"name":"Law","years":3,"level":"UG","averageSalary":1}`
	tests := []struct {
		method, path, body string
		status             int
		called             string
	}{
		{http.MethodPost, "/api/v1/degrees", body, http.StatusCreated, "create"},
		{http.MethodGet, "/api/v1/degrees/"+degreeID, "", http.StatusOK, "get"},
		{http.MethodPut, "/api/v1/degrees/"+degreeID, body, http.StatusOK, "update"},
		{http.MethodDelete, "/api/v1/degrees/"+degreeID, "", http.StatusNoContent, "delete"},
		{http.MethodGet, "/api/v1/degrees/search?query=law", "", http.StatusOK, "search"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			r, svc := newTestRouter(t)
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.called, svc.called)
			assert.NotEmpty(t, w.Header().Get(response.HeaderRequestID))
		})
	}
}

func TestAPIResponsesAreNotCached(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/degrees/"+degreeID, nil))

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestUnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var env response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrRouteNotFound, env.Error.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Generate one observed API request before scraping.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/degrees/"+degreeID, nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/api/v1/degrees/:id",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/degrees", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
