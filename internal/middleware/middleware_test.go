package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, path, acceptEncoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func brotliEngine() *gin.Engine {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64, Skipper: SkipPaths("/skip")}))
	big := strings.Repeat("degree ", 100)
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/skip", func(c *gin.Context) { c.String(http.StatusOK, big) })
	return r
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	rec := serve(brotliEngine(), "/big", "gzip, br")

	require.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("degree ", 100), string(plain))
}

func TestBrotliLeavesSmallBodies(t *testing.T) {
	rec := serve(brotliEngine(), "/small", "br")

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBrotliRequiresAcceptEncoding(t *testing.T) {
	rec := serve(brotliEngine(), "/big", "gzip")

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, strings.Repeat("degree ", 100), rec.Body.String())
}

func TestBrotliSkipper(t *testing.T) {
	rec := serve(brotliEngine(), "/skip", "br")

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestAcceptsBrotli(t *testing.T) {
	tests := map[string]bool{
		"br":               true,
		"gzip, br;q=0.8":   true,
		"BR":               true,
		"gzip, deflate":    false,
		"":                 false,
		"brotli-something": false,
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", header)
		assert.Equal(t, want, acceptsBrotli(req), header)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewNop()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/v1/degrees/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, "/api/v1/degrees/abc", "")
	serve(r, "/api/v1/degrees/def", "")
	serve(r, "/nowhere", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/degrees/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")))
}

func TestCacheControl(t *testing.T) {
	r := gin.New()
	r.Use(CacheControl("no-store"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, "no-store", serve(r, "/x", "").Header().Get("Cache-Control"))
}
