package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-dev/flowpilot/internal/domain"
)

func TestDisabledOracleReturnsPlaceholder(t *testing.T) {
	resp, err := NewDisabled().Prompt(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, DisabledResponse, resp)
}

func TestFactoryReturnsDisabledWithoutModels(t *testing.T) {
	o, err := NewFactory().ForSettings(domain.OracleSettings{})
	require.NoError(t, err)
	_, ok := o.(*Disabled)
	require.True(t, ok)
}

func TestInferProvider(t *testing.T) {
	cases := []struct {
		model domain.ModelDefinition
		want  string
	}{
		{domain.ModelDefinition{Provider: "Gemini"}, "gemini"},
		{domain.ModelDefinition{Endpoint: "https://generativelanguage.googleapis.com/v1beta/x"}, "gemini"},
		{domain.ModelDefinition{Endpoint: "https://api.openai.com/v1/chat/completions"}, "openai"},
		{domain.ModelDefinition{Endpoint: "http://localhost:8080/v1/chat/completions"}, "openai"},
		{domain.ModelDefinition{}, "disabled"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, inferProvider(c.model), "%+v", c.model)
	}
}

func TestGeminiOraclePromptRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "hello back"}]}}]}`))
	}))
	defer server.Close()
	t.Setenv("TEST_GEMINI_KEY", "test-key")

	model := domain.ModelDefinition{
		Provider:   "gemini",
		Endpoint:   server.URL,
		AuthEnvVar: "TEST_GEMINI_KEY",
		ModelID:    "gemini-2.0-flash",
	}
	o, err := NewFactory().ForModel(model, 5*time.Second)
	require.NoError(t, err)

	resp, err := o.Prompt(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "hello back", resp)
}

func TestOpenAIOraclePromptRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices": [{"message": {"content": "42"}}]}`))
	}))
	defer server.Close()
	t.Setenv("TEST_OPENAI_KEY", "test-key")

	model := domain.ModelDefinition{
		Provider:   "openai",
		Endpoint:   server.URL,
		AuthEnvVar: "TEST_OPENAI_KEY",
		ModelID:    "gpt-4o-mini",
	}
	o, err := NewFactory().ForModel(model, 5*time.Second)
	require.NoError(t, err)

	resp, err := o.Prompt(context.Background(), "meaning of life")
	require.NoError(t, err)
	require.Equal(t, "42", resp)
}

func TestHTTPErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()
	t.Setenv("TEST_OPENAI_KEY", "test-key")

	model := domain.ModelDefinition{
		Provider:   "openai",
		Endpoint:   server.URL,
		AuthEnvVar: "TEST_OPENAI_KEY",
	}
	o, err := NewFactory().ForModel(model, 5*time.Second)
	require.NoError(t, err)

	_, err = o.Prompt(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestMissingAPIKeyFailsBeforeRequest(t *testing.T) {
	model := domain.ModelDefinition{
		Provider:   "gemini",
		Endpoint:   "https://example.invalid",
		AuthEnvVar: "FLOWPILOT_TEST_UNSET_KEY",
	}
	t.Setenv("GEMINI_API_KEY", "")
	o, err := NewFactory().ForModel(model, 5*time.Second)
	require.NoError(t, err)

	_, err = o.Prompt(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing API key")
}

type recordingStore struct {
	agent, prompt, response string
	calls                   int
}

func (r *recordingStore) LogInteraction(agent, prompt, response string) error {
	r.agent, r.prompt, r.response = agent, prompt, response
	r.calls++
	return nil
}

func (r *recordingStore) SaveSuggestions([]*domain.PendingSuggestion) error      { return nil }
func (r *recordingStore) LoadSuggestions() ([]*domain.PendingSuggestion, error)  { return nil, nil }
func (r *recordingStore) SaveExecution(domain.ExecutionRecord) error             { return nil }
func (r *recordingStore) Executions(int) ([]domain.ExecutionRecord, error)       { return nil, nil }
func (r *recordingStore) AddTimeSaved(string, int, time.Time) error              { return nil }
func (r *recordingStore) TotalTimeSaved() (int, error)                           { return 0, nil }
func (r *recordingStore) SaveSummary(domain.ActivitySummary) error               { return nil }
func (r *recordingStore) Summaries(string, int) ([]domain.ActivitySummary, error) { return nil, nil }
func (r *recordingStore) Close() error                                           { return nil }

func TestLoggingDecoratorRecordsInteractions(t *testing.T) {
	store := &recordingStore{}
	o := NewLogging(NewDisabled(), "pattern_detector", store, noopLogger{})

	resp, err := o.Prompt(context.Background(), "find a pattern")
	require.NoError(t, err)
	require.Equal(t, DisabledResponse, resp)
	require.Equal(t, 1, store.calls)
	require.Equal(t, "pattern_detector", store.agent)
	require.Equal(t, "find a pattern", store.prompt)
	require.Equal(t, DisabledResponse, store.response)
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]interface{})        {}
func (noopLogger) Info(string, map[string]interface{})         {}
func (noopLogger) Warn(string, map[string]interface{})         {}
func (noopLogger) Error(string, error, map[string]interface{}) {}
