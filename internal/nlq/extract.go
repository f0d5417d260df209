package nlq

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/logging"
)

// RawQuery is the immutable request input: free text plus an optional
// cluster hint supplied out of band (query parameter, tool argument).
type RawQuery struct {
	Text        string
	ClusterHint string
}

// ParsedQuery is the structured intent extracted from one RawQuery. It is
// produced once per request and never mutated afterwards. Absent constraints
// are zero values; validation happens later in the filter builder.
type ParsedQuery struct {
	ResourceType   Kind
	TimeRange      TimeRange
	NameFilter     string
	Namespace      string
	LabelSelectors map[string]string
	StatusFilter   string
	ClusterHint    string
	// RawConfidence is 1.0 when the deterministic matcher decided the
	// resource type, the oracle-reported value when the oracle did, and 0
	// when both came up empty.
	RawConfidence float64
}

// statusWords maps status vocabulary to canonical status strings.
var statusWords = map[string]string{
	"running":          "Running",
	"pending":          "Pending",
	"failed":           "Failed",
	"failing":          "Failed",
	"succeeded":        "Succeeded",
	"completed":        "Succeeded",
	"terminating":      "Terminating",
	"crashloopbackoff": "CrashLoopBackOff",
	"crashlooping":     "CrashLoopBackOff",
	"crashing":         "CrashLoopBackOff",
}

// NormalizeStatus canonicalizes a status word ("running" -> "Running").
// Unrecognized words report false.
func NormalizeStatus(word string) (string, bool) {
	s, ok := statusWords[strings.ToLower(strings.TrimSpace(word))]
	return s, ok
}

var (
	namespaceRe    = regexp.MustCompile(`\bin\s+(?:the\s+)?namespace\s+([a-z0-9][a-z0-9-]*)`)
	namespaceSufRe = regexp.MustCompile(`\bin\s+(?:the\s+)?([a-z0-9][a-z0-9-]*)\s+namespace\b`)
	nameRe         = regexp.MustCompile(`\b(?:named|called|name\s+contains)\s+"?([a-z0-9][a-z0-9.-]*)"?`)
	labelRe        = regexp.MustCompile(`([a-z0-9][a-z0-9./-]*)=([a-z0-9][a-z0-9._-]*)`)
	clusterRe      = regexp.MustCompile(`\b(?:in|on|from)\s+(?:the\s+)?cluster\s+"?([a-z0-9][a-z0-9_-]*)"?`)
	allClustersRe  = regexp.MustCompile(`\b(?:all|every|across\s+(?:all\s+)?)\s*clusters\b`)
	tokenSplitRe   = regexp.MustCompile(`[\s,;:!?()]+`)
)

// OracleRecorder receives the outcome of every oracle inference call.
// *instrumentation.Metrics is the production implementation.
type OracleRecorder interface {
	RecordOracleCall(ctx context.Context, status string)
}

type noopOracleRecorder struct{}

func (noopOracleRecorder) RecordOracleCall(context.Context, string) {}

// Extractor turns raw queries into ParsedQuery values, deterministically
// where possible and via the oracle otherwise.
type Extractor struct {
	oracle        Oracle
	oracleTimeout time.Duration
	recorder      OracleRecorder
	now           func() time.Time
	logger        *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithOracle sets the fallback oracle. Without one the extractor is purely
// deterministic.
func WithOracle(o Oracle) ExtractorOption {
	return func(e *Extractor) { e.oracle = o }
}

// WithOracleTimeout bounds each oracle call.
func WithOracleTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.oracleTimeout = d
		}
	}
}

// WithOracleRecorder sets the oracle call outcome recorder.
func WithOracleRecorder(r OracleRecorder) ExtractorOption {
	return func(e *Extractor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock overrides the time source used for relative phrases.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the extractor's logger.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// DefaultOracleTimeout bounds oracle calls when no explicit budget is set.
const DefaultOracleTimeout = 10 * time.Second

// NewExtractor creates an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		oracleTimeout: DefaultOracleTimeout,
		recorder:      noopOracleRecorder{},
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasOracle reports whether a fallback oracle is configured.
func (e *Extractor) HasOracle() bool {
	return e.oracle != nil
}

// Extract produces the ParsedQuery for one raw query.
//
// The deterministic pass runs first. If it identifies the resource type the
// result is final with confidence 1.0 and no network call is made. Otherwise
// the oracle (when configured) is consulted under its own timeout; its
// answer is validated through the normalizer and fills only the fields the
// deterministic pass left empty. When the oracle is absent, times out, or
// returns something unusable, extraction degrades to an unknown resource
// type with confidence 0 instead of failing.
func (e *Extractor) Extract(ctx context.Context, q RawQuery) ParsedQuery {
	ctx, span := instrumentation.StartQuerySpan(ctx, "extract")
	defer span.End()

	parsed, oracleUsed := e.extract(ctx, q)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithOracleUsed(oracleUsed).
		WithConfidence(parsed.RawConfidence).
		WithResource(string(parsed.ResourceType), "").
		Build()...)
	return parsed
}

// extract runs the two-pass pipeline and reports whether the oracle
// contributed to the result.
func (e *Extractor) extract(ctx context.Context, q RawQuery) (ParsedQuery, bool) {
	parsed := e.deterministic(q)
	if parsed.ResourceType.Known() {
		parsed.RawConfidence = 1.0
		return parsed, false
	}

	if e.oracle == nil {
		return parsed, false
	}

	octx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	inf, err := e.oracle.Infer(octx, q.Text)
	if err != nil {
		e.recorder.RecordOracleCall(octx, instrumentation.StatusError)
		e.logger.Warn("oracle inference failed, degrading to deterministic result",
			logging.Operation("extract"),
			logging.Query(q.Text),
			logging.Err(err))
		return parsed, false
	}
	e.recorder.RecordOracleCall(octx, instrumentation.StatusSuccess)
	return e.mergeInference(parsed, inf), true
}

// deterministic runs the keyword/regex pass. The returned query has
// RawConfidence 0; the caller assigns confidence based on which path won.
func (e *Extractor) deterministic(q RawQuery) ParsedQuery {
	text := strings.ToLower(q.Text)
	parsed := ParsedQuery{ClusterHint: strings.TrimSpace(q.ClusterHint)}

	// Clause patterns are cut out of the text as they match so their words
	// cannot be mistaken for a resource kind ("in namespace monitoring"
	// must not resolve to the Namespace kind).
	if m := namespaceRe.FindStringSubmatch(text); m != nil {
		parsed.Namespace = m[1]
		text = strings.Replace(text, m[0], " ", 1)
	} else if m := namespaceSufRe.FindStringSubmatch(text); m != nil {
		parsed.Namespace = m[1]
		text = strings.Replace(text, m[0], " ", 1)
	}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		parsed.NameFilter = m[1]
		text = strings.Replace(text, m[0], " ", 1)
	}

	if parsed.ClusterHint == "" {
		if allClustersRe.MatchString(text) {
			parsed.ClusterHint = ClusterHintAll
			text = allClustersRe.ReplaceAllString(text, " ")
		} else if m := clusterRe.FindStringSubmatch(text); m != nil {
			parsed.ClusterHint = m[1]
			text = strings.Replace(text, m[0], " ", 1)
		}
	}

	for _, m := range labelRe.FindAllStringSubmatch(text, -1) {
		if parsed.LabelSelectors == nil {
			parsed.LabelSelectors = map[string]string{}
		}
		parsed.LabelSelectors[m[1]] = m[2]
	}
	text = labelRe.ReplaceAllString(text, " ")

	if r, ok := FindTimeRange(text, e.now()); ok {
		parsed.TimeRange = r
	}

	for _, token := range tokenSplitRe.Split(text, -1) {
		if token == "" {
			continue
		}
		if parsed.StatusFilter == "" {
			if status, ok := NormalizeStatus(token); ok {
				parsed.StatusFilter = status
				continue
			}
		}
		if !parsed.ResourceType.Known() {
			if kind, ok := ResolveKind(token); ok {
				parsed.ResourceType = kind
			}
		}
	}

	return parsed
}

// mergeInference overlays a validated oracle answer onto the deterministic
// partial result. Deterministic findings win; the oracle only fills gaps.
func (e *Extractor) mergeInference(parsed ParsedQuery, inf Inference) ParsedQuery {
	if !parsed.ResourceType.Known() && inf.ResourceType != "" {
		if kind, ok := ResolveKind(inf.ResourceType); ok {
			parsed.ResourceType = kind
		}
	}
	if parsed.TimeRange.IsZero() && inf.TimePhrase != "" {
		if r, ok := NormalizeTimePhrase(inf.TimePhrase, e.now()); ok {
			parsed.TimeRange = r
		}
	}
	if parsed.NameFilter == "" {
		parsed.NameFilter = strings.TrimSpace(inf.Name)
	}
	if parsed.Namespace == "" {
		parsed.Namespace = strings.TrimSpace(inf.Namespace)
	}
	if len(parsed.LabelSelectors) == 0 && len(inf.Labels) > 0 {
		parsed.LabelSelectors = make(map[string]string, len(inf.Labels))
		for k, v := range inf.Labels {
			parsed.LabelSelectors[k] = v
		}
	}
	if parsed.StatusFilter == "" && inf.Status != "" {
		if status, ok := NormalizeStatus(inf.Status); ok {
			parsed.StatusFilter = status
		}
	}

	if parsed.ResourceType.Known() {
		parsed.RawConfidence = clampConfidence(inf.Confidence)
	}
	return parsed
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// ClusterHintAll is the reserved hint meaning "every configured cluster".
const ClusterHintAll = "all"
