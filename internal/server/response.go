package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/logging"
	"github.com/opsloom/kubequery/internal/query"
)

// Error kinds used in the error envelope. Clients switch on these, so
// they are part of the API contract.
const (
	ErrorKindInvalidFilter     = "InvalidFilter"
	ErrorKindUnknownCluster    = "UnknownCluster"
	ErrorKindAllClustersFailed = "AllClustersFailed"
	ErrorKindNotFound          = "NotFound"
	ErrorKindBadRequest        = "BadRequest"
	ErrorKindInternal          = "Internal"
)

// ErrorBody is the inner object of the error envelope.
type ErrorBody struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Clusters map[string]string `json:"clusters,omitempty"`
}

// ErrorResponse is the envelope returned by every failing endpoint.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id"`
}

// FilterQueryRequest is the body of POST /api/filter/query.
type FilterQueryRequest struct {
	Query       string `json:"query"`
	ClusterHint string `json:"cluster_hint,omitempty"`
}

// FilterQueryResponse is the success body of POST /api/filter/query.
// Matched is never nil; zero matches with no errors is a valid outcome.
type FilterQueryResponse struct {
	Matched         []engine.Match    `json:"matched"`
	TotalConsidered int               `json:"total_considered"`
	Errors          map[string]string `json:"errors,omitempty"`
	QueryEcho       query.FilterSpec  `json:"query_echo"`
	Warnings        []string          `json:"warnings,omitempty"`
	RequestID       string            `json:"request_id"`
}

// AgentQueryRequest is the body of POST /api/agent/query.
type AgentQueryRequest struct {
	Prompt string `json:"prompt"`
}

// AgentQueryResponse is the success body of POST /api/agent/query.
type AgentQueryResponse struct {
	Answer    string         `json:"answer"`
	Action    string         `json:"action"`
	Records   []engine.Match `json:"records,omitempty"`
	RequestID string         `json:"request_id"`
}

// DiagnoseResponse is the success body of POST /api/agent/diagnose.
type DiagnoseResponse struct {
	Pod       string   `json:"pod"`
	Namespace string   `json:"namespace"`
	Cluster   string   `json:"cluster"`
	Phase     string   `json:"phase,omitempty"`
	Issues    []string `json:"issues"`
	Events    []string `json:"events,omitempty"`
	LogTail   []string `json:"log_tail,omitempty"`
	Report    string   `json:"report"`
	RequestID string   `json:"request_id"`
}

// ClusterInfo is one entry in the GET /api/clusters listing.
type ClusterInfo struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// ClustersResponse is the body of GET /api/clusters.
type ClustersResponse struct {
	Clusters  []ClusterInfo `json:"clusters"`
	RequestID string        `json:"request_id"`
}

// newRequestID mints the correlation id attached to every response.
func newRequestID() string {
	return uuid.NewString()
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a pipeline error onto the envelope and status code.
// Request-level failures carry a user-facing message; anything
// unclassified degrades to an opaque internal error.
func writeError(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	var (
		status int
		body   ErrorBody
	)

	var invalidFilter *query.InvalidFilterError
	var unknownCluster *cluster.UnknownClusterError
	switch {
	case errors.As(err, &invalidFilter):
		status = http.StatusBadRequest
		body = ErrorBody{Kind: ErrorKindInvalidFilter, Message: invalidFilter.UserFacingError()}
	case errors.As(err, &unknownCluster):
		status = http.StatusNotFound
		body = ErrorBody{Kind: ErrorKindUnknownCluster, Message: unknownCluster.UserFacingError()}
	case apierrors.IsNotFound(err):
		status = http.StatusNotFound
		body = ErrorBody{Kind: ErrorKindNotFound, Message: err.Error()}
	default:
		status = http.StatusInternalServerError
		body = ErrorBody{Kind: ErrorKindInternal, Message: "internal error"}
		if logger != nil {
			logger.Error("request failed",
				slog.String("request_id", requestID),
				logging.Err(err))
		}
	}

	writeJSON(w, status, ErrorResponse{Error: body, RequestID: requestID})
}

// writeBadRequest reports a malformed request body or missing parameter.
func writeBadRequest(w http.ResponseWriter, requestID, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:     ErrorBody{Kind: ErrorKindBadRequest, Message: message},
		RequestID: requestID,
	})
}

// writeAllClustersFailed reports the aggregate failure for a query where
// no cluster could be reached. Per-cluster reasons are always surfaced;
// an empty success would hide a fleet-wide outage.
func writeAllClustersFailed(w http.ResponseWriter, requestID string, result *engine.Result) {
	writeJSON(w, http.StatusBadGateway, ErrorResponse{
		Error: ErrorBody{
			Kind:     ErrorKindAllClustersFailed,
			Message:  fmt.Sprintf("all %d clusters failed", len(result.PerClusterErrors)),
			Clusters: clusterReasons(result.PerClusterErrors),
		},
		RequestID: requestID,
	})
}

// clusterReasons flattens per-cluster errors into the response map shape.
func clusterReasons(errs []engine.ClusterError) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, ce := range errs {
		out[ce.ClusterID] = fmt.Sprintf("%s: %s", ce.Kind, ce.Message)
	}
	return out
}
