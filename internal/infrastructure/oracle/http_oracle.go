// Package oracle implements the LLM port over HTTP provider APIs, plus the
// disabled sentinel and the interaction-logging decorator.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

type httpOracle struct {
	name       string
	model      domain.ModelDefinition
	timeout    time.Duration
	httpClient *http.Client
	adapter    providerAdapter
}

type providerAdapter struct {
	buildRequest  func(domain.ModelDefinition, string) ([]byte, error)
	buildURL      func(domain.ModelDefinition) (string, error)
	parseResponse func([]byte) (string, error)
	setHeaders    func(*http.Request, domain.ModelDefinition) error
}

func newHTTPOracle(name string, model domain.ModelDefinition, timeout time.Duration, client *http.Client, adapter providerAdapter) ports.Oracle {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpOracle{
		name:       name,
		model:      model,
		timeout:    timeout,
		httpClient: client,
		adapter:    adapter,
	}
}

// Prompt implements ports.Oracle with a per-call timeout on top of the
// caller's context.
func (o *httpOracle) Prompt(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	requestBody, err := o.adapter.buildRequest(o.model, text)
	if err != nil {
		return "", err
	}

	endpoint, err := o.adapter.buildURL(o.model)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("content-type", "application/json")
	if err := o.adapter.setHeaders(httpReq, o.model); err != nil {
		return "", err
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s: %s", o.name, resp.Status)
	}

	var responseBody bytes.Buffer
	if _, err := responseBody.ReadFrom(resp.Body); err != nil {
		return "", err
	}
	return o.adapter.parseResponse(responseBody.Bytes())
}

func geminiAdapter() providerAdapter {
	return providerAdapter{
		buildRequest:  buildGeminiRequest,
		buildURL:      buildGeminiURL,
		parseResponse: parseGeminiResponse,
		setHeaders:    func(*http.Request, domain.ModelDefinition) error { return nil },
	}
}

func openaiAdapter() providerAdapter {
	return providerAdapter{
		buildRequest:  buildChatCompletionRequest,
		buildURL:      func(m domain.ModelDefinition) (string, error) { return m.Endpoint, nil },
		parseResponse: parseChatCompletionResponse,
		setHeaders:    setOpenAIHeaders,
	}
}

func buildGeminiRequest(model domain.ModelDefinition, text string) ([]byte, error) {
	request := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": text},
				},
			},
		},
	}
	if model.MaxTokens > 0 {
		request["generationConfig"] = map[string]interface{}{
			"maxOutputTokens": model.MaxTokens,
		}
	}
	return json.Marshal(request)
}

// buildGeminiURL appends the API key as a query parameter, the scheme the
// generativelanguage endpoint expects.
func buildGeminiURL(model domain.ModelDefinition) (string, error) {
	apiKey := getEnv(model.AuthEnvVar, "GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("missing API key: set %s or GEMINI_API_KEY", model.AuthEnvVar)
	}
	return model.Endpoint + "?key=" + apiKey, nil
}

func parseGeminiResponse(body []byte) (string, error) {
	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}

func buildChatCompletionRequest(model domain.ModelDefinition, text string) ([]byte, error) {
	request := map[string]interface{}{
		"model": model.ModelID,
		"messages": []map[string]string{
			{"role": "user", "content": text},
		},
	}
	if model.MaxTokens > 0 {
		request["max_tokens"] = model.MaxTokens
	}
	return json.Marshal(request)
}

func parseChatCompletionResponse(body []byte) (string, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return response.Choices[0].Message.Content, nil
}

func setOpenAIHeaders(req *http.Request, model domain.ModelDefinition) error {
	apiKey := getEnv(model.AuthEnvVar, "OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("missing API key: set %s or OPENAI_API_KEY", model.AuthEnvVar)
	}
	req.Header.Set("authorization", "Bearer "+apiKey)
	return nil
}

func getEnv(primary, fallback string) string {
	if primary != "" {
		if value := os.Getenv(primary); value != "" {
			return value
		}
	}
	if fallback != "" {
		return os.Getenv(fallback)
	}
	return ""
}
