package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/opsloom/kubequery/internal/instrumentation"
)

// statusRecorder captures the response status code for metric labels. A
// zero status means the handler never wrote anything, which the HTTP stack
// treats as 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer so http.ResponseController keeps
// working through the wrapper.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetrics records a counter and duration histogram per
// method/path/status combination. Paths are normalized before recording so
// dynamic segments (UUIDs, numeric ids) cannot blow up metric cardinality;
// the API surface itself is a fixed set of routes, so normalized paths form
// a bounded set.
//
// A nil or disabled provider turns the middleware into a passthrough.
func HTTPMetrics(provider *instrumentation.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !provider.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			provider.Metrics().RecordHTTPRequest(
				r.Context(),
				r.Method,
				normalizePath(r.URL.Path),
				status,
				time.Since(start),
			)
		})
	}
}

var (
	uuidSegment    = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	numericSegment = regexp.MustCompile(`/\d+(/|$)`)
)

// normalizePath replaces dynamic path segments with placeholders so the
// path label stays bounded.
func normalizePath(path string) string {
	path = uuidSegment.ReplaceAllString(path, ":uuid")
	return numericSegment.ReplaceAllString(path, "/:id$1")
}
