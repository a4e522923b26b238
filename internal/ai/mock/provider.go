package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kiranshivaraju/lookscore/pkg/models"
)

// MockGateway satisfies models.ModelGateway for testing and local runs.
type MockGateway struct {
	Name_    string
	CallFunc func(ctx context.Context, req models.AnalysisRequest, forceStrictSchema bool) (any, error)

	mu    sync.Mutex
	calls []Call
}

// Call records one invocation of the gateway.
type Call struct {
	Request           models.AnalysisRequest
	ForceStrictSchema bool
}

func (m *MockGateway) Name() string { return m.Name_ }

func (m *MockGateway) Call(ctx context.Context, req models.AnalysisRequest, forceStrictSchema bool) (any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Request: req, ForceStrictSchema: forceStrictSchema})
	m.mu.Unlock()

	if m.CallFunc != nil {
		return m.CallFunc(ctx, req, forceStrictSchema)
	}
	return nil, nil
}

// Calls returns a copy of every invocation seen so far.
func (m *MockGateway) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// ValidSingle returns a decoded single-category result that passes validation.
func ValidSingle() any {
	return toJSONValue(models.SingleResult{
		Score:             8.5,
		Style:             "Clean lines with a well tailored silhouette.",
		ColorCoordination: "Neutral palette with one warm accent color.",
		Accessories:       "Minimal jewelry that keeps the focus on the outfit.",
		Harmony:           "All pieces work together in a coherent way.",
		Suggestions:       []string{"Try a structured bag", "Swap to leather loafers"},
	})
}

// ValidAll returns a decoded all-categories result that passes validation.
func ValidAll() any {
	results := make([]models.CategoryResult, 0, len(models.Categories))
	for i, c := range models.Categories {
		results = append(results, models.CategoryResult{
			Category: c,
			Score:    float64(4 + i),
			Analysis: fmt.Sprintf("The outfit reads as moderately %s overall.", c),
		})
	}
	return toJSONValue(models.AllResult{
		OverallScore:    7,
		OverallAnalysis: "A versatile outfit that adapts well to several styles.",
		Results:         results,
	})
}

// NewValidGateway returns a MockGateway that answers every call with a valid
// result for the request's variant.
func NewValidGateway() *MockGateway {
	return &MockGateway{
		Name_: "mock",
		CallFunc: func(_ context.Context, req models.AnalysisRequest, _ bool) (any, error) {
			if models.VariantFor(req.Category) == models.VariantAll {
				return ValidAll(), nil
			}
			return ValidSingle(), nil
		},
	}
}

// NewFailingGateway returns a MockGateway that always returns err.
func NewFailingGateway(err error) *MockGateway {
	return &MockGateway{
		Name_: "mock-failing",
		CallFunc: func(_ context.Context, _ models.AnalysisRequest, _ bool) (any, error) {
			return nil, err
		},
	}
}

// Response is one scripted gateway answer.
type Response struct {
	Value any
	Err   error
}

// NewSequenceGateway returns a MockGateway that replays responses in order.
// Calls beyond the script return the last response again.
func NewSequenceGateway(responses ...Response) *MockGateway {
	var (
		mu sync.Mutex
		n  int
	)
	return &MockGateway{
		Name_: "mock-sequence",
		CallFunc: func(_ context.Context, _ models.AnalysisRequest, _ bool) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(responses) == 0 {
				return nil, nil
			}
			r := responses[min(n, len(responses)-1)]
			n++
			return r.Value, r.Err
		},
	}
}

// NewSlowGateway returns a MockGateway that waits for delay (or ctx) before
// answering like NewValidGateway.
func NewSlowGateway(delay time.Duration) *MockGateway {
	valid := NewValidGateway()
	return &MockGateway{
		Name_: "mock-slow",
		CallFunc: func(ctx context.Context, req models.AnalysisRequest, strict bool) (any, error) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return valid.CallFunc(ctx, req, strict)
		},
	}
}

// toJSONValue converts v into the generic form json.Unmarshal produces, which
// is what real gateways return.
func toJSONValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

// Compile-time check that MockGateway implements ModelGateway.
var _ models.ModelGateway = (*MockGateway)(nil)
