package oracle

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// Factory builds oracles from model definitions, sharing one HTTP client.
type Factory struct {
	httpClient *http.Client
}

// NewFactory builds a factory.
func NewFactory() *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ForSettings resolves the configured default model and returns its oracle.
// With no models configured, the disabled sentinel is returned so the rest
// of the system keeps functioning without an LLM.
func (f *Factory) ForSettings(settings domain.OracleSettings) (ports.Oracle, error) {
	if len(settings.Models) == 0 {
		return NewDisabled(), nil
	}
	model := settings.Models[0]
	for _, m := range settings.Models {
		if m.Name == settings.DefaultModel {
			model = m
			break
		}
	}
	return f.ForModel(model, settings.Timeout())
}

// ForModel builds an oracle for one model definition.
func (f *Factory) ForModel(model domain.ModelDefinition, timeout time.Duration) (ports.Oracle, error) {
	switch inferProvider(model) {
	case "gemini":
		return newHTTPOracle("gemini", model, timeout, f.httpClient, geminiAdapter()), nil
	case "openai":
		return newHTTPOracle("openai", model, timeout, f.httpClient, openaiAdapter()), nil
	case "disabled":
		return NewDisabled(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", model.Provider)
	}
}

func inferProvider(model domain.ModelDefinition) string {
	if model.Provider != "" {
		return strings.ToLower(model.Provider)
	}
	switch {
	case strings.Contains(model.Endpoint, "googleapis.com"):
		return "gemini"
	case strings.Contains(model.Endpoint, "openai.com"):
		return "openai"
	case model.Endpoint == "":
		return "disabled"
	default:
		// OpenAI-compatible servers are the de facto standard for
		// self-hosted endpoints.
		return "openai"
	}
}
