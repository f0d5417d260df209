package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/opsloom/kubequery/internal/nlq"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-1.5-flash"

	// DefaultRequestsPerSecond and DefaultBurst keep the oracle well
	// inside free-tier quota.
	DefaultRequestsPerSecond = 1.0
	DefaultBurst             = 3
)

// Config holds Gemini connection settings.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model names the Gemini model, with or without the "models/"
	// prefix. Empty selects DefaultModel.
	Model string

	// RequestsPerSecond and Burst tune the client-side rate limiter.
	// Zero selects the defaults.
	RequestsPerSecond float64
	Burst             int

	// Logger receives oracle diagnostics. Nil selects slog.Default.
	Logger *slog.Logger

	// Endpoint overrides the API base URL, used by tests to point the
	// client at a fake server.
	Endpoint string
}

// Gemini implements nlq.Oracle against the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGemini builds the Gemini oracle. The API key is required.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini oracle requires an API key")
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("build gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   modelPath(cfg.Model),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}, nil
}

// Infer asks Gemini to read the query. Any failure, from rate-limiter
// cancellation to a malformed reply, comes back as
// nlq.ErrOracleUnavailable so the extractor can degrade in one place.
func (g *Gemini) Infer(ctx context.Context, text string) (nlq.Inference, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nlq.Inference{}, fmt.Errorf("%w: rate limiter: %v", nlq.ErrOracleUnavailable, err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		g.logger.Warn("oracle call failed", slog.String("model", g.model), slog.String("error", err.Error()))
		return nlq.Inference{}, fmt.Errorf("%w: %v", nlq.ErrOracleUnavailable, err)
	}

	payload, err := candidateText(resp)
	if err != nil {
		return nlq.Inference{}, err
	}
	return parseInference(payload)
}

// modelPath normalizes a model name to the "models/<name>" resource
// form the API expects.
func modelPath(model string) string {
	if model == "" {
		model = DefaultModel
	}
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// candidateText pulls the first text part out of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response", nlq.ErrOracleUnavailable)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("%w: candidate without content", nlq.ErrOracleUnavailable)
	}
	return content.Parts[0].Text, nil
}

// parseInference decodes the model's JSON reply. Fenced or prose-
// wrapped replies are tolerated by cutting to the outermost braces.
func parseInference(text string) (nlq.Inference, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nlq.Inference{}, fmt.Errorf("%w: no JSON object in reply", nlq.ErrOracleUnavailable)
	}

	var inf nlq.Inference
	if err := json.Unmarshal([]byte(raw), &inf); err != nil {
		return nlq.Inference{}, fmt.Errorf("%w: malformed JSON reply: %v", nlq.ErrOracleUnavailable, err)
	}
	return inf, nil
}

// extractJSON returns the outermost JSON object embedded in text, or
// empty when there is none.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// systemPrompt states the extraction contract. The reply must be a
// single JSON object using the inference wire keys.
func systemPrompt() string {
	kinds := make([]string, 0, len(nlq.Kinds()))
	for _, kind := range nlq.Kinds() {
		kinds = append(kinds, string(kind))
	}

	var b strings.Builder
	b.WriteString("You extract structured filters from natural language queries about Kubernetes resources.\n")
	b.WriteString("Reply with exactly one JSON object and nothing else, using these keys:\n")
	b.WriteString(`  "resource_type": one of `)
	b.WriteString(strings.Join(kinds, ", "))
	b.WriteString(" or \"\" when no kind is named\n")
	b.WriteString("  \"time_phrase\": the temporal phrase from the query, verbatim, or \"\"\n")
	b.WriteString("  \"name\": a name or name fragment the query asks for, or \"\"\n")
	b.WriteString("  \"namespace\": the namespace the query names, or \"\"\n")
	b.WriteString("  \"labels\": an object of label key/value pairs, or {}\n")
	b.WriteString("  \"status\": the lifecycle status the query asks for, or \"\"\n")
	b.WriteString("  \"confidence\": your confidence in this reading, 0.0 to 1.0\n")
	b.WriteString("Never invent values the query does not contain.")
	return b.String()
}
