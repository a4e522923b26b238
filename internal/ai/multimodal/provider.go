// Package multimodal implements models.ModelGateway against a text-generation
// endpoint that accepts {"messages": [...]} and answers {"completion": ...}.
package multimodal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/lookscore/internal/ai/extract"
	"github.com/kiranshivaraju/lookscore/internal/config"
	"github.com/kiranshivaraju/lookscore/pkg/models"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// Provider implements models.ModelGateway over HTTP.
type Provider struct {
	cfg     config.ModelConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewProvider creates a Provider. A zero RequestsPerSecond disables rate limiting.
func NewProvider(cfg config.ModelConfig) *Provider {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (p *Provider) Name() string { return "multimodal" }

// Call performs exactly one POST to the model endpoint. It never retries.
func (p *Provider) Call(ctx context.Context, req models.AnalysisRequest, forceStrictSchema bool) (any, error) {
	if p.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for model rate limiter: %w", err)
	}

	payload, err := json.Marshal(chatRequest{Messages: BuildMessages(req, forceStrictSchema)})
	if err != nil {
		return nil, fmt.Errorf("encoding model request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading model response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewGatewayError(models.ReasonHTTPStatus(resp.StatusCode), string(body))
	}

	return ParseResponse(body, resp.Header.Get("Content-Type"))
}

// ParseResponse decodes the response envelope and returns its completion as a
// JSON value. The envelope is tried as a whole and then as the span between
// the first '{' and the last '}'.
func ParseResponse(body []byte, contentType string) (any, error) {
	text := string(body)

	envelope, err := extract.ParseWith(text, extract.Direct, extract.BraceScan)
	if err != nil {
		if looksLikeHTML(contentType, text) {
			return nil, models.NewGatewayError(models.ReasonHTMLResponse, text)
		}
		return nil, models.NewGatewayError(models.ReasonJSONParseError, text)
	}

	obj, ok := envelope.(map[string]any)
	if !ok {
		return nil, models.NewGatewayError(models.ReasonInvalidCompletion, text)
	}
	return ParseCompletion(obj["completion"])
}

// ParseCompletion accepts a completion that is already an object, or a string
// holding one (optionally fenced or wrapped in prose).
func ParseCompletion(completion any) (any, error) {
	switch c := completion.(type) {
	case map[string]any:
		return c, nil
	case string:
		v, err := extract.ParseWith(c, extract.FenceStripped, extract.BraceScan)
		if err != nil {
			return nil, models.NewGatewayError(models.ReasonJSONParseError, c)
		}
		return v, nil
	default:
		return nil, models.NewGatewayError(models.ReasonInvalidCompletion, fmt.Sprintf("%T", completion))
	}
}

func looksLikeHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(body), "<")
}

var _ models.ModelGateway = (*Provider)(nil)
