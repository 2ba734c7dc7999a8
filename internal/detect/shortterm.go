package detect

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// DetectionMarker is the literal text whose presence in the short-term
// detector response signals a positive decision. The text preceding it is
// the human-readable pattern description.
const DetectionMarker = "PATTERN_DETECTED"

// minPatternActions is the smallest window that can form a pattern. Below
// this the detector returns without invoking the oracle.
const minPatternActions = 3

// Detection is a positive short-term decision.
type Detection struct {
	Description string
	Confidence  domain.Confidence
}

// ShortTermDetector looks for automation opportunities in a 30-second
// sliding window of mixed actions. A rule precheck rejects windows that
// cannot qualify (too few actions, single-key spam, no file-op locality and
// no switch/copy-paste cycles) before any oracle call; the oracle makes the
// final call via the detection marker. The detector self-throttles with an
// internal cooldown independent of the suggestion-level cooldown.
type ShortTermDetector struct {
	oracle   ports.Oracle
	log      ports.Logger
	cooldown time.Duration
	now      func() time.Time

	mu            sync.Mutex
	lastDetection time.Time
}

// NewShortTermDetector builds a detector with the given self-throttle
// cooldown (default 5s when zero).
func NewShortTermDetector(oracle ports.Oracle, log ports.Logger, cooldown time.Duration) *ShortTermDetector {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	return &ShortTermDetector{
		oracle:   oracle,
		log:      log,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Detect inspects the window and returns a detection, or nil when no
// pattern exists. Oracle failures fail open to nil.
func (d *ShortTermDetector) Detect(ctx context.Context, actions []domain.UserAction) (*Detection, error) {
	if len(actions) < minPatternActions {
		return nil, nil
	}

	d.mu.Lock()
	if !d.lastDetection.IsZero() && d.now().Sub(d.lastDetection) < d.cooldown {
		d.mu.Unlock()
		return nil, nil
	}
	d.mu.Unlock()

	if !windowQualifies(actions) {
		return nil, nil
	}

	resp, err := d.oracle.Prompt(ctx, detectionPrompt(actions))
	if err != nil {
		return nil, fmt.Errorf("short-term detection: %w", err)
	}

	detection := parseDetection(resp)
	if detection == nil {
		return nil, nil
	}

	d.mu.Lock()
	d.lastDetection = d.now()
	d.mu.Unlock()

	d.log.Info("short-term pattern detected", map[string]interface{}{
		"actions":    len(actions),
		"confidence": string(detection.Confidence),
	})
	return detection, nil
}

// windowQualifies applies the rule precheck: reject repetitive single-key
// spam, accept file-operation locality or app-switch/copy-paste cycles.
func windowQualifies(actions []domain.UserAction) bool {
	if isShortcutSpam(actions) {
		return false
	}
	return hasFileOpLocality(actions) || hasSwitchPasteCycles(actions)
}

// isShortcutSpam reports a window made entirely of the same keyboard
// shortcut repeated (e.g. alt+tab mashing).
func isShortcutSpam(actions []domain.UserAction) bool {
	first := ""
	for _, a := range actions {
		if a.Type != domain.ActionKeyboardShortcut {
			return false
		}
		shortcut := strings.ToLower(a.DetailString("shortcut"))
		if first == "" {
			first = shortcut
		} else if shortcut != first {
			return false
		}
	}
	return first != ""
}

// hasFileOpLocality reports 2+ file operations touching the same or an
// adjacent (parent/child) directory.
func hasFileOpLocality(actions []domain.UserAction) bool {
	var dirs []string
	for _, a := range actions {
		if op, ok := domain.FileOpFromAction(a); ok && op.SrcPath != "" {
			dirs = append(dirs, op.Dir())
		}
	}
	if len(dirs) < 2 {
		return false
	}
	for i := 0; i < len(dirs); i++ {
		for j := i + 1; j < len(dirs); j++ {
			if adjacentDirs(dirs[i], dirs[j]) {
				return true
			}
		}
	}
	return false
}

func adjacentDirs(a, b string) bool {
	return a == b || filepath.Dir(a) == b || filepath.Dir(b) == a
}

// hasSwitchPasteCycles reports 2+ cycles of app switching combined with
// copy/paste shortcuts between exactly two applications.
func hasSwitchPasteCycles(actions []domain.UserAction) bool {
	apps := map[string]bool{}
	switches, pastes := 0, 0
	for _, a := range actions {
		switch a.Type {
		case domain.ActionAppSwitch:
			switches++
			if app := a.DetailString("app_name"); app != "" {
				apps[app] = true
			}
		case domain.ActionKeyboardShortcut:
			shortcut := strings.ToLower(a.DetailString("shortcut"))
			if shortcut == "ctrl+c" || shortcut == "ctrl+v" || shortcut == "cmd+c" || shortcut == "cmd+v" {
				pastes++
			}
		}
	}
	return len(apps) == 2 && switches >= 2 && pastes >= 2
}

func parseDetection(resp string) *Detection {
	idx := strings.Index(resp, DetectionMarker)
	if idx < 0 {
		return nil
	}
	description := strings.TrimSpace(resp[:idx])
	confidence := domain.ConfidenceMedium
	if len(description) > 50 {
		confidence = domain.ConfidenceHigh
	}
	return &Detection{Description: description, Confidence: confidence}
}

func detectionPrompt(actions []domain.UserAction) string {
	var b strings.Builder
	b.WriteString(`You are an intelligent automation pattern detector. Your job is to identify REAL automation opportunities.

WHAT IS A REAL PATTERN (DETECT THESE):

FILE OPERATIONS IN SAME/NEARBY DIRECTORY:
 - User working with 2-3 files in the same directory or similar paths
 - Renaming, moving, copying files following a pattern
 - Creating folders and organizing files
 Example: Renaming IMG_001.jpg -> vacation_001.jpg, IMG_002.jpg -> vacation_002.jpg

APP SWITCHING WITH MEANINGFUL WORK:
 - User switches between 2 apps AND does copy-paste (Ctrl+C, Ctrl+V) between them
 - Example: Excel -> Ctrl+C -> Word -> Ctrl+V -> Excel -> Ctrl+C -> Word -> Ctrl+V (2+ cycles)
 - Must have BOTH app switching AND copy-paste actions

REPETITIVE WORKFLOW:
 - User does the same sequence of file operations multiple times
 - User performs same keyboard shortcuts in pattern with actual work

WHAT IS NOT A PATTERN (REJECT THESE):

SPAM ACTIONS:
 - User repeatedly pressing Alt+Tab (just switching windows)
 - User repeatedly pressing Ctrl+C without context
 - Single app switches with no work
 - Random navigation or browsing

ISOLATED ACTIONS:
 - Single file operation with no repetition
 - One copy-paste action
 - Just opening apps without doing work

IMPORTANT RULES:
1. Only suggest patterns with a REAL chance to optimize/automate
2. Pattern must involve at least 3 meaningful actions
3. For app switching: Must have copy-paste actions too (2+ cycles)
4. For file operations: Must involve 2-3+ files in same/nearby directory
5. REJECT spam/repetitive single actions (alt+tab spam, ctrl+c spam)

IF YOU DETECT A REAL AUTOMATABLE PATTERN:
- Describe what you saw the user doing (be specific about files/apps)
- Explain why this could be automated
- Keep it conversational and helpful
- End with: PATTERN_DETECTED

IF NO REAL PATTERN EXISTS:
- Say 'No automatable pattern detected'
- Do NOT end with PATTERN_DETECTED

Recent user actions (last 30 seconds):
`)
	for i, a := range actions {
		fmt.Fprintf(&b, "\n%d. Type: %s\n", i+1, a.Type)
		fmt.Fprintf(&b, "   Time: %s\n", a.Timestamp.Format("15:04:05"))
		fmt.Fprintf(&b, "   Details: %s\n", formatDetails(a.Details))
		if len(a.Metadata) > 0 {
			fmt.Fprintf(&b, "   Metadata: %v\n", a.Metadata)
		}
	}
	return b.String()
}

// formatDetails renders a details map with long string values truncated to
// keep prompts bounded.
func formatDetails(details map[string]any) string {
	out := make(map[string]any, len(details))
	for k, v := range details {
		if s, ok := v.(string); ok && len(s) > 100 {
			out[k] = s[:100] + "..."
		} else {
			out[k] = v
		}
	}
	return fmt.Sprintf("%v", out)
}
