package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// llmFilterThreshold is the set size above which the rule-filtered
// operations are additionally pruned by the oracle. Small sets are cheap
// to leave intact.
const llmFilterThreshold = 5

// ActionFilter removes program-generated file operations, first by rule and
// then, for larger sets, by asking the oracle which entries show human
// intent. Oracle failures fail open: the rule-filtered set is returned
// unchanged.
type ActionFilter struct {
	oracle ports.Oracle
	log    ports.Logger
}

// NewActionFilter builds a filter. A nil oracle disables the LLM pass.
func NewActionFilter(oracle ports.Oracle, log ports.Logger) *ActionFilter {
	return &ActionFilter{oracle: oracle, log: log}
}

// Filter returns the user-initiated subset of operations.
func (f *ActionFilter) Filter(ctx context.Context, ops []domain.FileOp) []domain.FileOp {
	if len(ops) == 0 {
		return nil
	}

	filtered := ruleFilter(ops)
	if f.oracle == nil || len(filtered) <= llmFilterThreshold {
		return filtered
	}

	resp, err := f.oracle.Prompt(ctx, filterPrompt(filtered))
	if err != nil {
		f.log.Warn("llm filter failed, keeping rule-filtered set", map[string]interface{}{"error": err.Error()})
		return filtered
	}
	indices, err := parseKeepIndices(resp, len(filtered))
	if err != nil {
		f.log.Debug("llm filter response unparsable, keeping rule-filtered set", map[string]interface{}{"error": err.Error()})
		return filtered
	}
	kept := make([]domain.FileOp, 0, len(indices))
	for _, i := range indices {
		kept = append(kept, filtered[i])
	}
	return kept
}

func ruleFilter(ops []domain.FileOp) []domain.FileOp {
	var filtered []domain.FileOp
	for _, op := range ops {
		if op.Category == "system" {
			continue
		}
		if isProgramGenerated(op.SrcPath) || isTemporary(op.SrcPath) ||
			isBuildArtifact(op.SrcPath) || isLogFile(op.SrcPath) {
			continue
		}
		filtered = append(filtered, op)
	}
	return filtered
}

var programMarkers = []string{
	"__pycache__", ".pyc", ".pyo", ".pack", ".idx",
	"node_modules", ".git/", ".vscode/", ".idea/",
	"target/", "build/", "dist/", ".next/", ".nuxt/",
	"venv/", "env/", ".env",
	"package-lock.json", "yarn.lock", "composer.lock", "Pipfile.lock",
	".ds_store", "thumbs.db", ".tmp", ".temp",
}

var tempMarkers = []string{".tmp", ".temp", ".cache", ".swp", ".swo", "~", ".bak", ".backup"}

var buildSuffixes = []string{
	".o", ".obj", ".exe", ".dll", ".so", ".dylib",
	".a", ".lib", ".jar", ".war", ".ear", ".class", ".pyc", ".pyo",
}

var logMarkers = []string{".log", ".logs/", "log/", "logs/"}

func isProgramGenerated(path string) bool {
	return containsAny(strings.ToLower(path), programMarkers)
}

func isTemporary(path string) bool {
	return containsAny(strings.ToLower(path), tempMarkers)
}

func isBuildArtifact(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range buildSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func isLogFile(path string) bool {
	return containsAny(strings.ToLower(path), logMarkers)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// parseKeepIndices parses the oracle's JSON index array. It errors on
// anything that is not a bare JSON array of in-range indices; the caller
// owns the fallback policy.
func parseKeepIndices(raw string, n int) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("response is not a JSON array")
	}
	var indices []int
	if err := json.Unmarshal([]byte(raw), &indices); err != nil {
		return nil, fmt.Errorf("parse index array: %w", err)
	}
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("index %d out of range [0,%d)", i, n)
		}
	}
	return indices, nil
}

func filterPrompt(ops []domain.FileOp) string {
	var b strings.Builder
	b.WriteString(`You are an action filter that identifies user-initiated file operations vs program-generated ones.
Analyze the following file operations and determine which ones were likely initiated by a human user.

Keep operations that:
- Show clear user intent (editing source code, creating documents, organizing files)
- Involve meaningful file types (.py, .js, .html, .css, .md, .txt, .json, etc.)
- Appear to be part of a deliberate workflow

Remove operations that:
- Are clearly automated or program-generated
- Involve system files, cache, or temporary files
- Show patterns typical of build processes or automated tools
- Are too frequent or systematic to be human-initiated

Respond with a JSON array of indices (0-based) of operations to KEEP.
For example: [0, 2, 5, 7]

File operations:
`)
	for i, op := range ops {
		fmt.Fprintf(&b, "%d: %s | %s | %s\n", i, op.EventType, op.SrcPath, op.DestPath)
	}
	return b.String()
}
