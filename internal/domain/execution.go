package domain

import "time"

// AttemptResult records one execution attempt of an automation script.
// Attempts are ordered and never mutated after creation.
type AttemptResult struct {
	Attempt        int           `json:"attempt"`
	Success        bool          `json:"success"`
	Output         string        `json:"output"`
	Error          string        `json:"error"`
	ReturnCode     int           `json:"return_code"`
	ExecutionTime  time.Duration `json:"execution_time"`
	ScriptFilePath string        `json:"script_file_path,omitempty"`
}

// LibraryInstallFailure describes one package that could not be installed.
type LibraryInstallFailure struct {
	Library string `json:"library"`
	Error   string `json:"error"`
}

// LibraryInstallation records the outcome of installing a script's
// third-party dependencies before execution.
type LibraryInstallation struct {
	Success   bool                    `json:"success"`
	Installed []string                `json:"installed"`
	Failed    []LibraryInstallFailure `json:"failed,omitempty"`
}

// ExecutionRecord is produced exactly once per executor invocation and is
// immutable after completion.
type ExecutionRecord struct {
	ExecutionID     int                  `json:"execution_id"`
	UserExplanation string               `json:"user_explanation"`
	Script          string               `json:"script"`
	Timestamp       time.Time            `json:"timestamp"`
	Attempts        []AttemptResult      `json:"attempts"`
	Success         bool                 `json:"success"`
	FinalOutput     string               `json:"final_output"`
	FinalError      string               `json:"final_error"`
	LibraryInstall  *LibraryInstallation `json:"library_installation,omitempty"`
}

// RunResult is what the subprocess runner reports for one interpreter
// invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}
