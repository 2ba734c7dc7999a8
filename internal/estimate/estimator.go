// Package estimate converts a completed automation into an estimated
// number of seconds of manual work avoided, blending a conservative
// keyword heuristic with an oracle judgement.
package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// operationTimes holds conservative lower-bound seconds per detected
// operation, keyed by category then operation. Lower bounds only: the
// estimator must not flatter the automation.
var operationTimes = map[string]map[string]int{
	"file_operations": {
		"copy_move":     3,
		"rename":        5,
		"delete":        2,
		"create_folder": 5,
		"search":        8,
	},
	"data_processing": {
		"csv_processing":   10,
		"text_processing":  5,
		"image_processing": 8,
		"batch_operations": 15,
	},
	"web_email": {
		"email_processing": 5,
		"web_scraping":     15,
		"form_filling":     8,
		"data_entry":       3,
	},
	"system_ops": {
		"backup":       15,
		"cleanup":      30,
		"organization": 20,
		"monitoring":   8,
	},
}

// fallbackMinutes is the oracle estimate used when the response is
// completely unusable.
const fallbackMinutes = 5

// failedExecutionFactor scales the blended estimate when the underlying
// execution failed: it almost saved time, but far less certainly.
const failedExecutionFactor = 0.3

var digitsRe = regexp.MustCompile(`\d+`)

// Estimator blends heuristic and oracle time estimates.
type Estimator struct {
	oracle ports.Oracle
	log    ports.Logger
	now    func() time.Time
}

// New builds an estimator.
func New(oracle ports.Oracle, log ports.Logger) *Estimator {
	return &Estimator{oracle: oracle, log: log, now: time.Now}
}

// Estimate computes the capped, blended time-saved figure for one executed
// automation. Never fails: every error path degrades to a usable estimate.
func (e *Estimator) Estimate(ctx context.Context, script, userExplanation string, execution domain.ExecutionRecord) domain.TimeEstimate {
	analysis := analyzeScript(script)
	base := baseEstimate(analysis)
	oracleEst := e.oracleEstimate(ctx, script, userExplanation, analysis)

	oracleSeconds := oracleEst.minutes * 60
	oracleWeight := 0.5
	if oracleEst.confidence > 0.6 {
		oracleWeight = 0.7
	}
	blended := float64(base.seconds)*(1-oracleWeight) + float64(oracleSeconds)*oracleWeight
	if !execution.Success {
		blended *= failedExecutionFactor
	}

	capped := int(blended)
	if capped > domain.MaxTimeSavedSeconds {
		capped = domain.MaxTimeSavedSeconds
	}

	breakdown := base.breakdown
	breakdown["base_estimation_seconds"] = base.seconds
	breakdown["ai_estimation_seconds"] = oracleSeconds
	breakdown["final_seconds"] = capped

	return domain.TimeEstimate{
		EstimatedSeconds: capped,
		Confidence:       (base.confidence + oracleEst.confidence) / 2,
		Breakdown:        breakdown,
		Reasoning:        oracleEst.reasoning,
		OperationTypes:   analysis.operationTypes,
		ComplexityScore:  analysis.complexity,
		Timestamp:        e.now(),
	}
}

type scriptAnalysis struct {
	operations     map[string][]string // category -> detected operations
	operationTypes []string
	complexity     int
}

// categoryKeywords drive the keyword sniffing: the first matching keyword
// per operation marks it detected.
var categoryKeywords = []struct {
	category  string
	operation string
	keywords  []string
}{
	{"file_operations", "copy_move", []string{"shutil.copy", "shutil.move", "os.rename", "copyfile"}},
	{"file_operations", "create_folder", []string{"os.makedirs", "mkdir", "create"}},
	{"file_operations", "search", []string{"glob.glob", "os.walk", "find", "search"}},
	{"data_processing", "csv_processing", []string{"csv", "pandas", "dataframe", "excel"}},
	{"data_processing", "text_processing", []string{"re.sub", "replace", "text", "string"}},
	{"data_processing", "image_processing", []string{"pillow", "pil", "image", "resize"}},
	{"web_email", "web_scraping", []string{"requests", "urllib", "scraping", "beautifulsoup"}},
	{"web_email", "email_processing", []string{"smtp", "email", "mail"}},
	{"system_ops", "backup", []string{"backup", "archive", "compress"}},
	{"system_ops", "cleanup", []string{"cleanup", "delete", "remove"}},
}

func analyzeScript(script string) scriptAnalysis {
	analysis := scriptAnalysis{operations: map[string][]string{}}
	lower := strings.ToLower(script)

	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				analysis.operations[ck.category] = append(analysis.operations[ck.category], ck.operation)
				analysis.operationTypes = append(analysis.operationTypes, ck.category)
				break
			}
		}
	}

	analysis.complexity = complexityScore(script)
	return analysis
}

// complexityScore grades a script 0-20 from its length and control-flow
// density.
func complexityScore(script string) int {
	score := len(script) / 100
	if score > 10 {
		score = 10
	}
	score += strings.Count(script, "for ") * 2
	score += strings.Count(script, "while ") * 3
	score += strings.Count(script, "if ")
	score += strings.Count(script, "def ") * 2
	score += strings.Count(script, "import ")
	if score > 20 {
		score = 20
	}
	return score
}

type heuristicEstimate struct {
	seconds    int
	breakdown  map[string]int
	confidence float64
}

func baseEstimate(analysis scriptAnalysis) heuristicEstimate {
	total := 0
	breakdown := map[string]int{}
	for category, operations := range analysis.operations {
		for _, op := range operations {
			if seconds, ok := operationTimes[category][op]; ok {
				total += seconds
				breakdown[category+"_"+op] = seconds
			}
		}
	}
	multiplier := 1 + float64(analysis.complexity)*0.05
	return heuristicEstimate{
		seconds:    int(float64(total) * multiplier),
		breakdown:  breakdown,
		confidence: 0.6,
	}
}

type oracleEstimate struct {
	minutes    int
	confidence float64
	reasoning  string
}

func (e *Estimator) oracleEstimate(ctx context.Context, script, userExplanation string, analysis scriptAnalysis) oracleEstimate {
	fallback := oracleEstimate{minutes: fallbackMinutes, confidence: 0.5, reasoning: "Fallback estimation"}

	resp, err := e.oracle.Prompt(ctx, estimationPrompt(script, userExplanation, analysis))
	if err != nil {
		e.log.Warn("oracle time estimation failed", map[string]interface{}{"error": err.Error()})
		return fallback
	}

	var parsed struct {
		EstimatedMinutes int     `json:"estimated_minutes"`
		Confidence       float64 `json:"confidence"`
		Reasoning        string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(resp)), &parsed); err == nil && parsed.EstimatedMinutes > 0 {
		confidence := parsed.Confidence
		if confidence == 0 {
			confidence = 0.7
		}
		return oracleEstimate{
			minutes:    parsed.EstimatedMinutes,
			confidence: confidence,
			reasoning:  parsed.Reasoning,
		}
	}

	// Not JSON: settle for the first integer in the response.
	if m := digitsRe.FindString(resp); m != "" {
		if minutes, err := strconv.Atoi(m); err == nil {
			return oracleEstimate{minutes: minutes, confidence: 0.6, reasoning: "Extracted from oracle response"}
		}
	}
	return fallback
}

// extractJSON strips surrounding prose so a fenced or prefixed JSON object
// still parses.
func extractJSON(resp string) string {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start >= 0 && end > start {
		return resp[start : end+1]
	}
	return resp
}

func estimationPrompt(script, userExplanation string, analysis scriptAnalysis) string {
	preview := script
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert at estimating how long non-technical users would take to complete manual tasks that have been automated.

TASK: Estimate the time a non-technical user would spend manually performing the operations in this automation script.

USER'S EXPLANATION: "%s"

SCRIPT ANALYSIS:
- Operation types: %v
- Complexity score: %d/20

SCRIPT PREVIEW:
`+"```python\n%s\n```"+`

CONSIDERATIONS FOR NON-TECHNICAL USERS:
- They are unfamiliar with technical tools and interfaces
- They make mistakes and need to retry operations
- They navigate slowly through file systems and applications
- They often perform tasks one at a time instead of batch operations

ESTIMATION CATEGORIES (BE EXTREMELY CONSERVATIVE - USE MINIMAL VALUES):
1. Simple file operations (copy, move, rename): 5-15 seconds each
2. Data processing (Excel, CSV, text editing): 10-30 seconds
3. Web operations (scraping, form filling): 15-60 seconds
4. Batch operations: multiply single operation time by quantity (but cap at 2-3 minutes total)
5. Complex workflows: add minimal setup time (30 seconds max)

CRITICAL: Be extremely conservative with estimates. Most automation saves 10-60 seconds, not minutes.
NEVER estimate more than 2-3 minutes unless it's a truly complex multi-step workflow.

RESPOND WITH JSON:
{
    "estimated_minutes": <number>,
    "confidence": <0.1-1.0>,
    "reasoning": "<brief explanation>"
}
`, userExplanation, analysis.operationTypes, analysis.complexity, preview)
	return b.String()
}
