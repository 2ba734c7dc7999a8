package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// FileLoader loads YAML configuration from ~/.flowpilot/config.yaml
// (overridable via FLOWPILOT_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv("FLOWPILOT_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(userHomeDir(), ".flowpilot", "config.yaml")
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Oracle: domain.OracleSettings{
			DefaultModel:   "gemini-flash",
			TimeoutSeconds: 30,
			Models: []domain.ModelDefinition{
				{
					Name:       "gemini-flash",
					Provider:   "gemini",
					Endpoint:   "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
					AuthEnvVar: "GEMINI_API_KEY",
					ModelID:    "gemini-2.0-flash",
					MaxTokens:  2048,
				},
			},
		},
		Detection: domain.DetectionSettings{
			WindowSeconds:             30,
			MinActions:                3,
			MaxWindowActions:          50,
			DetectorCooldownSeconds:   5,
			SuggestionCooldownSeconds: 60,
			IgnoreTTLHours:            24,
		},
		Registry: domain.RegistrySettings{
			Capacity: 100000,
		},
		Executor: domain.ExecutorSettings{
			Interpreter:           "python3",
			MaxRetries:            3,
			ScriptTimeoutSeconds:  60,
			InstallTimeoutSeconds: 120,
			PolicyFile:            filepath.Join(userHomeDir(), ".flowpilot", "policy.yaml"),
		},
		Persistence: domain.PersistSettings{
			Path:         filepath.Join(userHomeDir(), ".flowpilot", "flowpilot.db"),
			FlushSeconds: 30,
		},
		Summaries: domain.SummarySettings{
			Enabled:               true,
			MinuteIntervalSeconds: 60,
			TenMinIntervalSeconds: 600,
			MinMinuteSummaries:    5,
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Oracle.DefaultModel == "" && len(cfg.Oracle.Models) > 0 {
		cfg.Oracle.DefaultModel = cfg.Oracle.Models[0].Name
	}
	if cfg.Oracle.TimeoutSeconds == 0 {
		cfg.Oracle.TimeoutSeconds = 30
	}
	if cfg.Detection.WindowSeconds == 0 {
		cfg.Detection.WindowSeconds = 30
	}
	if cfg.Detection.MinActions == 0 {
		cfg.Detection.MinActions = 3
	}
	if cfg.Detection.MaxWindowActions == 0 {
		cfg.Detection.MaxWindowActions = 50
	}
	if cfg.Detection.DetectorCooldownSeconds == 0 {
		cfg.Detection.DetectorCooldownSeconds = 5
	}
	if cfg.Detection.SuggestionCooldownSeconds == 0 {
		cfg.Detection.SuggestionCooldownSeconds = 60
	}
	if cfg.Detection.IgnoreTTLHours == 0 {
		cfg.Detection.IgnoreTTLHours = 24
	}
	if cfg.Executor.Interpreter == "" {
		cfg.Executor.Interpreter = "python3"
	}
	if cfg.Executor.MaxRetries == 0 {
		cfg.Executor.MaxRetries = 3
	}
	if cfg.Executor.ScriptTimeoutSeconds == 0 {
		cfg.Executor.ScriptTimeoutSeconds = 60
	}
	if cfg.Executor.InstallTimeoutSeconds == 0 {
		cfg.Executor.InstallTimeoutSeconds = 120
	}
	if cfg.Persistence.Path == "" {
		cfg.Persistence.Path = filepath.Join(userHomeDir(), ".flowpilot", "flowpilot.db")
	}
	if cfg.Persistence.FlushSeconds == 0 {
		cfg.Persistence.FlushSeconds = 30
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
