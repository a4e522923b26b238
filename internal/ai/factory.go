package ai

import (
	"fmt"

	"github.com/kiranshivaraju/lookscore/internal/ai/mock"
	"github.com/kiranshivaraju/lookscore/internal/ai/multimodal"
	"github.com/kiranshivaraju/lookscore/internal/config"
	"github.com/kiranshivaraju/lookscore/pkg/models"
)

// NewGateway constructs the model gateway selected by config.
// Called once at server startup.
func NewGateway(cfg config.ModelConfig) (models.ModelGateway, error) {
	switch cfg.Provider {
	case config.ProviderHTTP:
		return multimodal.NewProvider(cfg), nil
	case config.ProviderMock:
		return mock.NewValidGateway(), nil
	default:
		return nil, fmt.Errorf("%w %q: must be one of http, mock", ErrUnknownGateway, cfg.Provider)
	}
}
