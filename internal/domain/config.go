package domain

import "time"

// Config is the application configuration, loaded from
// ~/.flowpilot/config.yaml (overridable via FLOWPILOT_CONFIG).
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Oracle              OracleSettings    `yaml:"oracle"`
	Detection           DetectionSettings `yaml:"detection"`
	Registry            RegistrySettings  `yaml:"registry"`
	Executor            ExecutorSettings  `yaml:"executor"`
	Persistence         PersistSettings   `yaml:"persistence"`
	Summaries           SummarySettings   `yaml:"summaries"`
}

// OracleSettings selects and configures the LLM oracle.
type OracleSettings struct {
	DefaultModel   string            `yaml:"default_model"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Models         []ModelDefinition `yaml:"models"`
}

// Timeout returns the per-call oracle budget.
func (o OracleSettings) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// ModelDefinition describes one oracle endpoint with its authentication
// and generation parameters.
type ModelDefinition struct {
	Name       string `yaml:"name"`
	Provider   string `yaml:"provider"` // gemini, openai
	Endpoint   string `yaml:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var"`
	ModelID    string `yaml:"model_id"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// DetectionSettings tune the detectors and the suggestion throttle policy.
type DetectionSettings struct {
	WindowSeconds             int `yaml:"window_seconds"`              // short-term sliding window
	MinActions                int `yaml:"min_actions"`                 // minimum actions per window
	MaxWindowActions          int `yaml:"max_window_actions"`          // newest actions considered per cycle
	DetectorCooldownSeconds   int `yaml:"detector_cooldown_seconds"`   // detector self-throttle
	SuggestionCooldownSeconds int `yaml:"suggestion_cooldown_seconds"` // between suggestions
	IgnoreTTLHours            int `yaml:"ignore_ttl_hours"`            // fingerprint suppression TTL
}

// Window returns the short-term window as a duration.
func (d DetectionSettings) Window() time.Duration {
	return time.Duration(d.WindowSeconds) * time.Second
}

// DetectorCooldown returns the detector self-throttle interval.
func (d DetectionSettings) DetectorCooldown() time.Duration {
	return time.Duration(d.DetectorCooldownSeconds) * time.Second
}

// SuggestionCooldown returns the inter-suggestion cooldown.
func (d DetectionSettings) SuggestionCooldown() time.Duration {
	return time.Duration(d.SuggestionCooldownSeconds) * time.Second
}

// IgnoreTTL returns how long a fingerprint stays suppressed.
func (d DetectionSettings) IgnoreTTL() time.Duration {
	return time.Duration(d.IgnoreTTLHours) * time.Hour
}

// RegistrySettings bound the activity log.
type RegistrySettings struct {
	Capacity int `yaml:"capacity"`
}

// ExecutorSettings tune the sandboxed script executor.
type ExecutorSettings struct {
	Interpreter           string `yaml:"interpreter"`
	MaxRetries            int    `yaml:"max_retries"`
	ScriptTimeoutSeconds  int    `yaml:"script_timeout_seconds"`
	InstallTimeoutSeconds int    `yaml:"install_timeout_seconds"`
	PolicyFile            string `yaml:"policy_file"`
}

// ScriptTimeout returns the per-attempt wall-clock budget.
func (e ExecutorSettings) ScriptTimeout() time.Duration {
	return time.Duration(e.ScriptTimeoutSeconds) * time.Second
}

// InstallTimeout returns the per-package install budget.
func (e ExecutorSettings) InstallTimeout() time.Duration {
	return time.Duration(e.InstallTimeoutSeconds) * time.Second
}

// PersistSettings configure the sqlite persistence collaborator.
type PersistSettings struct {
	Path         string `yaml:"path"`
	FlushSeconds int    `yaml:"flush_seconds"`
}

// FlushInterval returns the periodic persistence cadence.
func (p PersistSettings) FlushInterval() time.Duration {
	return time.Duration(p.FlushSeconds) * time.Second
}

// SummarySettings toggle the long-term summary pipeline.
type SummarySettings struct {
	Enabled               bool `yaml:"enabled"`
	MinuteIntervalSeconds int  `yaml:"minute_interval_seconds"`
	TenMinIntervalSeconds int  `yaml:"ten_minute_interval_seconds"`
	MinMinuteSummaries    int  `yaml:"min_minute_summaries"`
}
