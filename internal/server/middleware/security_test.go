package middleware

import (
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeadersAlwaysSet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	rec := httptest.NewRecorder()

	SecurityHeaders(SecurityHeadersConfig{})(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")
}

func TestSecurityHeadersHSTS(t *testing.T) {
	tests := []struct {
		name     string
		config   SecurityHeadersConfig
		tls      bool
		wantHSTS bool
	}{
		{name: "plain request", config: SecurityHeadersConfig{}, tls: false, wantHSTS: false},
		{name: "tls request", config: SecurityHeadersConfig{}, tls: true, wantHSTS: true},
		{name: "forced behind proxy", config: SecurityHeadersConfig{EnableHSTS: true}, tls: false, wantHSTS: true},
		{name: "tls and forced", config: SecurityHeadersConfig{EnableHSTS: true}, tls: true, wantHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			rec := httptest.NewRecorder()

			SecurityHeaders(tt.config)(okHandler()).ServeHTTP(rec, req)

			hsts := rec.Header().Get("Strict-Transport-Security")
			if tt.wantHSTS {
				assert.Contains(t, hsts, "max-age=31536000")
			} else {
				assert.Empty(t, hsts)
			}
		})
	}
}

func TestCORSOriginEcho(t *testing.T) {
	allowed := []string{"https://ops.example.com", "https://dash.example.com"}

	tests := []struct {
		name       string
		origin     string
		wantEchoed bool
	}{
		{name: "allowed origin echoed", origin: "https://dash.example.com", wantEchoed: true},
		{name: "unknown origin ignored", origin: "https://attacker.example.net", wantEchoed: false},
		{name: "no origin header", origin: "", wantEchoed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/clusters", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			CORS(allowed)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
			if tt.wantEchoed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "Origin", rec.Header().Get("Vary"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSEmptyAllowListNeverEchoes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/clusters", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()

	CORS(nil)(okHandler()).ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	var reachedHandler bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reachedHandler = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()

	CORS([]string{"https://ops.example.com"})(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, reachedHandler, "preflight must not reach the handler chain")
}

func TestValidateAllowedOrigins(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty input disables the list", input: "", want: nil},
		{name: "single origin", input: "https://ops.example.com", want: []string{"https://ops.example.com"}},
		{
			name:  "multiple origins with whitespace",
			input: " https://ops.example.com , http://localhost:3000 ",
			want:  []string{"https://ops.example.com", "http://localhost:3000"},
		},
		{name: "trailing slash normalized", input: "https://ops.example.com/", want: []string{"https://ops.example.com"}},
		{
			name:  "empty elements skipped",
			input: "https://ops.example.com,,https://dash.example.com",
			want:  []string{"https://ops.example.com", "https://dash.example.com"},
		},
		{name: "bare host rejected", input: "ops.example.com", wantErr: "must include scheme and host"},
		{name: "non-http scheme rejected", input: "ftp://ops.example.com", wantErr: "http or https"},
		{name: "path rejected", input: "https://ops.example.com/api", wantErr: "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAllowedOrigins(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaxRequestSizeCapsBody(t *testing.T) {
	var readErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		if readErr != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	body := `{"query":"` + strings.Repeat("show me all the pods ", 16) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	rec := httptest.NewRecorder()

	MaxRequestSize(64)(handler).ServeHTTP(rec, req)

	require.Error(t, readErr)
	var maxBytesErr *http.MaxBytesError
	assert.True(t, errors.As(readErr, &maxBytesErr), "read error should be a MaxBytesError")
	assert.Equal(t, int64(64), maxBytesErr.Limit)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMaxRequestSizeAllowsBodiesAtOrBelowCap(t *testing.T) {
	tests := []struct {
		name  string
		limit int64
		body  string
	}{
		{name: "below the cap", limit: 1024, body: `{"query":"failed pods in payments"}`},
		{name: "exactly at the cap", limit: 32, body: strings.Repeat("q", 32)},
		{name: "empty body", limit: 1024, body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var err error
				got, err = io.ReadAll(r.Body)
				require.NoError(t, err)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			MaxRequestSize(tt.limit)(handler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.body, string(got))
		})
	}
}

func TestMaxRequestSizeDisabled(t *testing.T) {
	for _, limit := range []int64{0, -1} {
		var got int
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			got = len(body)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(strings.Repeat("a", 8192)))
		rec := httptest.NewRecorder()

		MaxRequestSize(limit)(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 8192, got)
	}
}

func TestMaxRequestSizeChunkedBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// No Content-Length, as with chunked transfer encoding. The cap still
	// applies at read time.
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(strings.Repeat("a", 200)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	MaxRequestSize(100)(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
