package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsloom/kubequery/internal/nlq"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGemini(context.Background(), Config{
		APIKey:            "test-key",
		RequestsPerSecond: 100,
		Burst:             100,
		Endpoint:          server.URL,
	})
	require.NoError(t, err)
	return g
}

func generateReply(inner string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, inner)
}

func TestInfer(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/"+DefaultModel)
		assert.Contains(t, r.URL.Path, "generateContent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, generateReply(`{"resource_type":"deployments","namespace":"prod","time_phrase":"yesterday","confidence":0.85}`))
	})

	inf, err := g.Infer(context.Background(), "what got deployed to prod yesterday")
	require.NoError(t, err)
	assert.Equal(t, "deployments", inf.ResourceType)
	assert.Equal(t, "prod", inf.Namespace)
	assert.Equal(t, "yesterday", inf.TimePhrase)
	assert.InDelta(t, 0.85, inf.Confidence, 0.001)
}

func TestInferServerError(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"internal"}}`, http.StatusInternalServerError)
	})

	_, err := g.Infer(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, nlq.ErrOracleUnavailable)
}

func TestInferEmptyCandidates(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	_, err := g.Infer(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, nlq.ErrOracleUnavailable)
}

func TestInferMalformedReply(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, generateReply(`the pods you want are in prod`))
	})

	_, err := g.Infer(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, nlq.ErrOracleUnavailable)
}

func TestInferUnreachableEndpoint(t *testing.T) {
	g, err := NewGemini(context.Background(), Config{
		APIKey:   "test-key",
		Endpoint: "http://127.0.0.1:1",
	})
	require.NoError(t, err)

	_, err = g.Infer(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, nlq.ErrOracleUnavailable)
}

func TestInferCanceledContext(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, generateReply(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Infer(ctx, "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, nlq.ErrOracleUnavailable)
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestParseInference(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    nlq.Inference
		wantErr bool
	}{
		{
			name: "plain object",
			text: `{"resource_type":"pods","status":"Running","confidence":0.9}`,
			want: nlq.Inference{ResourceType: "pods", Status: "Running", Confidence: 0.9},
		},
		{
			name: "fenced object",
			text: "```json\n{\"resource_type\":\"services\",\"confidence\":0.7}\n```",
			want: nlq.Inference{ResourceType: "services", Confidence: 0.7},
		},
		{
			name: "prose wrapped",
			text: `Here is the extraction: {"namespace":"monitoring","confidence":0.5} as requested.`,
			want: nlq.Inference{Namespace: "monitoring", Confidence: 0.5},
		},
		{
			name: "labels",
			text: `{"labels":{"app":"web","tier":"db"},"confidence":1}`,
			want: nlq.Inference{Labels: map[string]string{"app": "web", "tier": "db"}, Confidence: 1},
		},
		{
			name:    "no JSON at all",
			text:    "I could not parse that query.",
			wantErr: true,
		},
		{
			name:    "broken JSON",
			text:    `{"resource_type":"pods"`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseInference(tc.text)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, nlq.ErrOracleUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestModelPath(t *testing.T) {
	assert.Equal(t, "models/"+DefaultModel, modelPath(""))
	assert.Equal(t, "models/gemini-1.5-pro", modelPath("gemini-1.5-pro"))
	assert.Equal(t, "models/custom", modelPath("models/custom"))
}

func TestSystemPromptNamesEveryKind(t *testing.T) {
	prompt := systemPrompt()
	for _, kind := range nlq.Kinds() {
		assert.True(t, strings.Contains(prompt, string(kind)), "prompt missing kind %s", kind)
	}
	assert.Contains(t, prompt, "JSON")
	assert.Contains(t, prompt, "confidence")
}
