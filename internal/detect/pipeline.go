// Package detect turns windows of raw user actions into automation
// decisions: a three-stage filter/analyze/spot pipeline over file
// operations, a rule-gated short-term detector over mixed action windows,
// pattern fingerprinting for dedup, and hierarchical long-term summaries.
package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// SpotMarker is the literal text whose presence in the spot stage response
// signals a positive decision.
const SpotMarker = "I have spotted the pattern"

// PatternResult is a positive pipeline decision.
type PatternResult struct {
	Description string          // spot-stage response text
	Analysis    string          // analyze-stage prose, opaque
	Operations  []domain.FileOp // filtered operations the decision covers
}

// Pipeline chains the filter, analyze and spot stages over a window of file
// operations. Every oracle failure fails open to "no pattern".
type Pipeline struct {
	filter *ActionFilter
	oracle ports.Oracle
	log    ports.Logger
}

// NewPipeline builds the detection chain.
func NewPipeline(oracle ports.Oracle, log ports.Logger) *Pipeline {
	return &Pipeline{
		filter: NewActionFilter(oracle, log),
		oracle: oracle,
		log:    log,
	}
}

// Detect runs the full chain. A nil result means no automatable pattern.
func (p *Pipeline) Detect(ctx context.Context, ops []domain.FileOp) (*PatternResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	filtered := p.filter.Filter(ctx, ops)
	if len(filtered) == 0 {
		return nil, nil
	}

	analysis, err := p.oracle.Prompt(ctx, analysisPrompt(filtered))
	if err != nil {
		return nil, fmt.Errorf("analyze stage: %w", err)
	}

	decision, err := p.oracle.Prompt(ctx, spotPrompt(analysis, filtered))
	if err != nil {
		return nil, fmt.Errorf("spot stage: %w", err)
	}
	if !strings.Contains(decision, SpotMarker) {
		return nil, nil
	}

	return &PatternResult{
		Description: decision,
		Analysis:    analysis,
		Operations:  filtered,
	}, nil
}

func analysisPrompt(ops []domain.FileOp) string {
	var b strings.Builder
	b.WriteString(`You are a pattern analysis agent that examines file operations to identify potential automation opportunities.
Your job is to REASON about whether there are meaningful patterns that could be automated.

Analyze the following file operations and provide your reasoning about:
1. Whether there are repetitive patterns
2. If the patterns show clear user intent
3. Whether the patterns could be converted into useful automation
4. The complexity and feasibility of automation

Focus on patterns that:
- Show clear, repetitive user actions
- Involve meaningful file operations (not system/cache files)
- Represent workflows the user would want to automate
- Can be converted into simple algorithms

Ignore patterns that are:
- Random or one-off operations
- System-generated (cache, temp, build files)
- Too complex or vague to automate
- Not representative of user intent

Provide your analysis in a clear, structured way.
Be specific about what patterns you observe and why they might be automatable.

File operations:
`)
	writeOps(&b, ops)
	return b.String()
}

func spotPrompt(analysis string, ops []domain.FileOp) string {
	var b strings.Builder
	b.WriteString(`You are a pattern spotting agent that makes the final decision about whether to spot an automation pattern.
You have received an analysis of file operations and must decide if there's a clear, automatable pattern.

CRITICAL REQUIREMENTS:
- Only spot patterns that are VERY SPECIFIC and ALGORITHM-LIKE
- Patterns must be easily convertible to short Python scripts
- Patterns must show clear, repetitive user intent
- Patterns must involve meaningful file operations

If you find a clear, automatable pattern:
1. Describe the specific algorithmic steps
2. Explain why it's automatable
3. End your response with: 'I have spotted the pattern'

If no clear pattern exists:
1. Explain why the operations don't form a clear pattern
2. Do NOT end with 'I have spotted the pattern'

Pattern Analysis:
`)
	b.WriteString(analysis)
	b.WriteString("\n\nFile Operations:\n")
	writeOps(&b, ops)
	return b.String()
}

func writeOps(b *strings.Builder, ops []domain.FileOp) {
	for _, op := range ops {
		fmt.Fprintf(b, "- %s | %s | %s\n", op.EventType, op.SrcPath, op.DestPath)
	}
}
