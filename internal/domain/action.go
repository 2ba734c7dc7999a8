// Package domain defines core business entities and value objects for flowpilot.
//
// The domain layer is independent of infrastructure concerns and represents
// pure data structures: observed user actions, automation suggestions,
// execution records and time-saved estimates.
package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// ActionType classifies an observed user event.
type ActionType string

const (
	ActionFileOperation    ActionType = "file_operation"
	ActionAppSwitch        ActionType = "app_switch"
	ActionKeyboardShortcut ActionType = "keyboard_shortcut"
	ActionEmailReceived    ActionType = "email_received"
	ActionEmailSent        ActionType = "email_sent"
)

// UserAction is one normalized record of a user-observable event.
// Actions are immutable once registered; the registry evicts the oldest
// entries when its capacity is reached.
type UserAction struct {
	ID        string         `json:"action_id"`
	Type      ActionType     `json:"action_type"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DetailString returns a string detail field, or "" when absent.
func (a UserAction) DetailString(key string) string {
	if a.Details == nil {
		return ""
	}
	if v, ok := a.Details[key].(string); ok {
		return v
	}
	return ""
}

// FileOp is the file-operation view of a UserAction, used by the
// pattern-detection pipeline and script generation prompts.
type FileOp struct {
	EventType     string    `json:"event_type"` // created, modified, moved, deleted, renamed
	SrcPath       string    `json:"src_path"`
	DestPath      string    `json:"dest_path,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	FileSize      int64     `json:"file_size,omitempty"`
	FileExtension string    `json:"file_extension,omitempty"`
	Category      string    `json:"operation_category,omitempty"` // file_management, content_edit, system
}

// Dir returns the directory containing the operation's source path.
func (op FileOp) Dir() string {
	return filepath.Dir(op.SrcPath)
}

// FileOpFromAction extracts a FileOp from a file_operation action.
// The second return is false for any other action type.
func FileOpFromAction(a UserAction) (FileOp, bool) {
	if a.Type != ActionFileOperation {
		return FileOp{}, false
	}
	op := FileOp{
		EventType:     a.DetailString("event_type"),
		SrcPath:       a.DetailString("src_path"),
		DestPath:      a.DetailString("dest_path"),
		FileExtension: a.DetailString("file_extension"),
		Category:      a.DetailString("operation_category"),
		Timestamp:     a.Timestamp,
	}
	if op.FileExtension == "" && op.SrcPath != "" {
		op.FileExtension = strings.ToLower(filepath.Ext(op.SrcPath))
	}
	if size, ok := a.Details["file_size"].(int64); ok {
		op.FileSize = size
	} else if size, ok := a.Details["file_size"].(float64); ok {
		op.FileSize = int64(size)
	}
	return op, true
}

// ActionStats summarizes the contents of the activity registry.
type ActionStats struct {
	TotalActions int                `json:"total_actions"`
	ByType       map[ActionType]int `json:"action_types"`
	BySource     map[string]int     `json:"sources"`
	Oldest       time.Time          `json:"oldest,omitempty"`
	Newest       time.Time          `json:"newest,omitempty"`
}

// ActivitySummary is one hierarchical natural-language summary produced by
// the long-term pipeline. Informational only; never feeds back into
// detection.
type ActivitySummary struct {
	Kind      string    `json:"kind"` // minute, ten_minute
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}
