package multimodal_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/lookscore/internal/ai/multimodal"
	"github.com/kiranshivaraju/lookscore/internal/config"
	"github.com/kiranshivaraju/lookscore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleJSON = `{"score":9,"style":"Sharp tailored look","colorCoordination":"Muted earth tones","accessories":"Leather watch and belt","harmony":"Balanced proportions"}`

func testRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Images:   []string{"aGVsbG8=", "d29ybGQ="},
		Category: "elegant",
		Language: "tr",
		Plan:     "premium",
	}
}

type captured struct {
	body    map[string]any
	headers http.Header
}

// newModelServer returns a provider pointed at a fake endpoint that replies with
// the given status, content type and body, and records what it received.
func newModelServer(t *testing.T, status int, contentType, body string) (*multimodal.Provider, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		c.headers = r.Header.Clone()
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p := multimodal.NewProvider(config.ModelConfig{
		Endpoint:    srv.URL,
		APIKey:      "secret",
		CallTimeout: 5 * time.Second,
	})
	return p, c
}

func completionBody(t *testing.T, completion any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"completion": completion})
	require.NoError(t, err)
	return string(b)
}

func requireReason(t *testing.T, err error, reason string) *models.GatewayError {
	t.Helper()
	require.Error(t, err)
	var gwErr *models.GatewayError
	require.True(t, errors.As(err, &gwErr), "expected GatewayError, got %T: %v", err, err)
	assert.Equal(t, reason, gwErr.Reason)
	assert.Equal(t, reason, err.Error())
	return gwErr
}

// --- request shape ---

func TestCall_SendsMessagesWithInlineImages(t *testing.T) {
	p, c := newModelServer(t, http.StatusOK, "application/json", completionBody(t, singleJSON))

	_, err := p.Call(context.Background(), testRequest(), false)
	require.NoError(t, err)

	assert.Equal(t, "application/json", c.headers.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", c.headers.Get("Authorization"))
	assert.Len(t, c.body, 1, "body carries only messages")

	msgs := c.body["messages"].([]any)
	require.Len(t, msgs, 2)

	sys := msgs[0].(map[string]any)
	assert.Equal(t, "system", sys["role"])
	sysText := sys["content"].(string)
	assert.Contains(t, sysText, "elegant")
	assert.Contains(t, sysText, "Turkish")
	assert.Contains(t, sysText, "5-6 sentences")
	assert.NotContains(t, sysText, "MUST have exactly this shape")

	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	parts := user["content"].([]any)
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	assert.Equal(t, "image", parts[1].(map[string]any)["type"])
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", parts[1].(map[string]any)["image"])
	assert.Equal(t, "data:image/jpeg;base64,d29ybGQ=", parts[2].(map[string]any)["image"])
}

func TestCall_StrictSchemaAddsShapeInstruction(t *testing.T) {
	p, c := newModelServer(t, http.StatusOK, "application/json", completionBody(t, singleJSON))

	_, err := p.Call(context.Background(), testRequest(), true)
	require.NoError(t, err)

	sysText := c.body["messages"].([]any)[0].(map[string]any)["content"].(string)
	assert.Contains(t, sysText, multimodal.SchemaInstruction(models.VariantSingle))
}

func TestCall_NoAuthorizationWithoutKey(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(completionBody(t, singleJSON)))
	}))
	defer srv.Close()

	p := multimodal.NewProvider(config.ModelConfig{Endpoint: srv.URL})
	_, err := p.Call(context.Background(), testRequest(), false)
	require.NoError(t, err)
	assert.Empty(t, auth)
}

// --- response handling ---

func TestCall_CompletionForms(t *testing.T) {
	var want any
	require.NoError(t, json.Unmarshal([]byte(singleJSON), &want))

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(singleJSON), &obj))

	tests := []struct {
		name string
		body string
	}{
		{"object completion", completionBody(t, obj)},
		{"raw string completion", completionBody(t, singleJSON)},
		{"fenced completion", completionBody(t, "```json\n"+singleJSON+"\n```")},
		{"prose completion", completionBody(t, "Sure! "+singleJSON+" Thanks")},
		{"envelope wrapped in noise", "data: " + completionBody(t, singleJSON) + "\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newModelServer(t, http.StatusOK, "application/json", tt.body)
			got, err := p.Call(context.Background(), testRequest(), false)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCall_NonSuccessStatus(t *testing.T) {
	p, _ := newModelServer(t, http.StatusBadGateway, "text/plain", strings.Repeat("x", 500))

	_, err := p.Call(context.Background(), testRequest(), false)
	gwErr := requireReason(t, err, "llm_http_502")
	assert.Len(t, gwErr.Detail, models.MaxErrorDetailLen)
}

func TestCall_HTMLResponse(t *testing.T) {
	p, _ := newModelServer(t, http.StatusOK, "text/html; charset=utf-8", "<html><body>Gateway Timeout</body></html>")
	_, err := p.Call(context.Background(), testRequest(), false)
	requireReason(t, err, models.ReasonHTMLResponse)
}

func TestCall_HTMLDetectedByLeadingAngle(t *testing.T) {
	p, _ := newModelServer(t, http.StatusOK, "application/octet-stream", "  <!DOCTYPE html><p>oops</p>")
	_, err := p.Call(context.Background(), testRequest(), false)
	requireReason(t, err, models.ReasonHTMLResponse)
}

func TestCall_UnparseableBody(t *testing.T) {
	p, _ := newModelServer(t, http.StatusOK, "text/plain", "upstream said no")
	_, err := p.Call(context.Background(), testRequest(), false)
	requireReason(t, err, models.ReasonJSONParseError)
}

func TestCall_UnparseableCompletionString(t *testing.T) {
	p, _ := newModelServer(t, http.StatusOK, "application/json", completionBody(t, "I cannot help with that."))
	_, err := p.Call(context.Background(), testRequest(), false)
	requireReason(t, err, models.ReasonJSONParseError)
}

func TestCall_InvalidCompletionTypes(t *testing.T) {
	for name, body := range map[string]string{
		"number":  `{"completion": 42}`,
		"null":    `{"completion": null}`,
		"missing": `{"text": "hi"}`,
		"array":   `{"completion": [1, 2]}`,
	} {
		t.Run(name, func(t *testing.T) {
			p, _ := newModelServer(t, http.StatusOK, "application/json", body)
			_, err := p.Call(context.Background(), testRequest(), false)
			requireReason(t, err, models.ReasonInvalidCompletion)
		})
	}
}

func TestCall_TransportErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := multimodal.NewProvider(config.ModelConfig{Endpoint: url})
	_, err := p.Call(context.Background(), testRequest(), false)
	require.Error(t, err)

	var gwErr *models.GatewayError
	assert.False(t, errors.As(err, &gwErr))
	assert.Equal(t, err.Error(), models.FailureReason(err))
}

func TestCall_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := multimodal.NewProvider(config.ModelConfig{Endpoint: srv.URL, CallTimeout: 50 * time.Millisecond})
	_, err := p.Call(context.Background(), testRequest(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// --- prompt helpers ---

func TestVerbosityFor(t *testing.T) {
	assert.Equal(t, "7+ sentences", multimodal.VerbosityFor("ultimate"))
	assert.Equal(t, "5-6 sentences", multimodal.VerbosityFor("premium"))
	assert.Equal(t, "1-2 sentences", multimodal.VerbosityFor("basic"))
	assert.Equal(t, "1-2 sentences, brief", multimodal.VerbosityFor("free"))
	assert.Equal(t, "1-2 sentences, brief", multimodal.VerbosityFor("enterprise"))
}

func TestBuildMessages_AllCategories(t *testing.T) {
	req := models.AnalysisRequest{Images: []string{"abc"}, Category: "all", Language: "en", Plan: "basic"}

	msgs := multimodal.BuildMessages(req, true)
	sysText := msgs[0].Content.(string)
	for _, c := range models.Categories {
		assert.Contains(t, sysText, c)
	}
	assert.Contains(t, sysText, "English")
	assert.Contains(t, sysText, "exactly 7 objects")
}

func TestBuildMessages_UnknownCategoryPassedThrough(t *testing.T) {
	req := models.AnalysisRequest{Images: []string{"abc"}, Category: "gothic", Language: "en", Plan: "free"}

	msgs := multimodal.BuildMessages(req, true)
	sysText := msgs[0].Content.(string)
	assert.Contains(t, sysText, "Category: gothic.")
	assert.Contains(t, sysText, multimodal.SchemaInstruction(models.VariantSingle))
}
