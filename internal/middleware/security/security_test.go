package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDetectorBlocksScans(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(okHandler())

	for _, path := range []string{"/.env", "/wp-admin/setup", "/.git/config", "/index.php"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	suspicious, blocked := d.Counts()
	assert.Equal(t, int64(4), suspicious)
	assert.Equal(t, int64(4), blocked)
}

func TestDetectorLogsButServesSuspiciousQuery(t *testing.T) {
	d := NewDetector()
	rr := httptest.NewRecorder()
	d.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?month=%3Cscript%3E", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	suspicious, blocked := d.Counts()
	assert.Equal(t, int64(1), suspicious)
	assert.Zero(t, blocked)
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.9", d.ExtractClientIP(r), "untrusted peer cannot forward")

	r.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(r))

	r.Header.Set("X-Forwarded-For", "not-an-ip")
	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", d.ExtractClientIP(r))
}

func TestHeadersMiddleware(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(okHandler()).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rr.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "https://cdn.jsdelivr.net")
	assert.Empty(t, h.Get("Strict-Transport-Security"), "HSTS only over TLS")
}
