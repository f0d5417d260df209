package nlq

import (
	"context"
	"errors"
)

// ErrOracleUnavailable indicates the oracle could not produce an answer
// (unreachable, over quota, timed out, or returned something unparseable).
// Extraction recovers from it locally; it never surfaces to callers of
// Extract.
var ErrOracleUnavailable = errors.New("nl oracle unavailable")

// Inference is the oracle's structured guess about a query. All fields are
// optional free-form strings; every one of them is re-validated through the
// normalizer before being trusted.
type Inference struct {
	ResourceType string            `json:"resource_type,omitempty"`
	TimePhrase   string            `json:"time_phrase,omitempty"`
	Name         string            `json:"name,omitempty"`
	Namespace    string            `json:"namespace,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	Status       string            `json:"status,omitempty"`
	Confidence   float64           `json:"confidence"`
}

// Oracle is the pluggable NL-to-intent collaborator. Implementations are
// expected to be slow and fallible; callers bound each Infer with a timeout
// and treat every error as ErrOracleUnavailable-equivalent.
type Oracle interface {
	Infer(ctx context.Context, text string) (Inference, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, text string) (Inference, error)

// Infer implements Oracle.
func (f OracleFunc) Infer(ctx context.Context, text string) (Inference, error) {
	return f(ctx, text)
}
