// Package scripts wraps the oracle prompts that turn a confirmed pattern
// into an automation script and a plain-language summary of it.
package scripts

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// FallbackSummary is returned when the summarizer errors; the user still
// gets a reviewable sentence instead of a failure.
const FallbackSummary = "The script will automate the detected pattern. Please review carefully before executing."

// Generator produces automation scripts and their summaries.
type Generator struct {
	oracle ports.Oracle
	log    ports.Logger
}

// NewGenerator builds a generator.
func NewGenerator(oracle ports.Oracle, log ports.Logger) *Generator {
	return &Generator{oracle: oracle, log: log}
}

// CreateScript asks the oracle for a runnable script implementing the
// described pattern. Markdown code fences in the response are stripped.
func (g *Generator) CreateScript(ctx context.Context, description string, ops []domain.FileOp) (string, error) {
	resp, err := g.oracle.Prompt(ctx, scriptPrompt(description, ops))
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}
	script := StripFences(resp)
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("generate script: empty response")
	}
	return script, nil
}

// RefineScript regenerates a script from the original pattern plus the
// user's refinement requests and, when the previous run failed, the error
// it produced.
func (g *Generator) RefineScript(ctx context.Context, description string, ops []domain.FileOp, refinements []string, previousError string) (string, error) {
	resp, err := g.oracle.Prompt(ctx, refinePrompt(description, ops, refinements, previousError))
	if err != nil {
		return "", fmt.Errorf("refine script: %w", err)
	}
	script := StripFences(resp)
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("refine script: empty response")
	}
	return script, nil
}

// Summarize produces a 4-6 sentence plain-language summary of the script.
// Fails open: any error yields FallbackSummary.
func (g *Generator) Summarize(ctx context.Context, script string) string {
	resp, err := g.oracle.Prompt(ctx, summaryPrompt(script))
	if err != nil || strings.TrimSpace(resp) == "" {
		if err != nil {
			g.log.Warn("script summary failed, using fallback", map[string]interface{}{"error": err.Error()})
		}
		return FallbackSummary
	}
	return strings.TrimSpace(resp)
}

// StripFences removes a surrounding markdown code block, if present.
func StripFences(script string) string {
	script = strings.TrimSpace(script)
	if strings.HasPrefix(script, "```python") {
		script = strings.TrimSpace(script[len("```python"):])
	} else if strings.HasPrefix(script, "```") {
		script = strings.TrimSpace(script[3:])
	}
	if strings.HasSuffix(script, "```") {
		script = strings.TrimSpace(script[:len(script)-3])
	}
	return script
}

func scriptPrompt(description string, ops []domain.FileOp) string {
	var b strings.Builder
	b.WriteString(`You are a Python automation script generator. Create SIMPLE, SAFE Python scripts from user patterns.

CRITICAL SAFETY RULES:
1. ALWAYS use FULL ABSOLUTE PATHS - NO relative paths, NO path manipulation
2. Use SIMPLE Python code - avoid complex logic that could fail
3. MINIMIZE risk of errors that could damage the user's PC
4. If you see file paths in the pattern, use EXACTLY those paths

CRITICAL: Output ONLY the raw Python code. DO NOT use markdown code blocks like ` + "```python" + `.
Start directly with the import statements or code.

CODE REQUIREMENTS:
- Create a complete, runnable Python script that executes AUTOMATICALLY
- DO NOT ask for user confirmation or input (no input(), no prompts)
- The script should run silently and complete the task automatically
- PREFER standard library modules (os, shutil, pathlib, glob, re, etc.) to avoid dependencies
- Use FULL PATHS everywhere
- If you need external packages, use CORRECT pip package names:
  * For images: use 'Pillow' (NOT 'PIL')
  * For Excel: use 'openpyxl' (NOT 'excel')
  * For PDFs: use 'PyPDF2' or 'pypdf' (NOT 'pdf')
  * For CSV and JSON: use the standard modules (NO package needed)
- Include proper error handling with try/except blocks
- Add brief comments explaining key steps
- Include a main() function and if __name__ == '__main__' guard

Pattern Description:
`)
	b.WriteString(description)
	b.WriteString("\n\nFile Operations:\n")
	for _, op := range ops {
		fmt.Fprintf(&b, "- %s | %s | %s\n", op.EventType, op.SrcPath, op.DestPath)
	}
	b.WriteString("\nGenerate a Python script that automates this pattern:\n")
	return b.String()
}

func refinePrompt(description string, ops []domain.FileOp, refinements []string, previousError string) string {
	var b strings.Builder
	b.WriteString(scriptPrompt(description, ops))
	b.WriteString("\nThe user has reviewed a previous version of the script and asked for changes.\n")
	b.WriteString("User refinement requests (apply ALL of them, most recent last):\n")
	for i, r := range refinements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	if previousError != "" {
		b.WriteString("\nThe previous script version failed with this error. Fix the cause:\n")
		b.WriteString(previousError)
		b.WriteString("\n")
	}
	b.WriteString("\nGenerate the corrected Python script:\n")
	return b.String()
}

func summaryPrompt(script string) string {
	var b strings.Builder
	b.WriteString(`You are a helpful assistant explaining a Python automation script in SIMPLE, NON-TECHNICAL language.
Write a SHORT summary (4-6 sentences) that a normal person can understand.

REQUIREMENTS:
1. Write EXACTLY 4-6 sentences (not more, not less)
2. Use SIMPLE everyday language - no technical terms
3. Explain WHAT the script will do (not HOW it works)
4. Mention specific files, folders, or paths if they're in the code
5. Make it clear so the user knows if it does what they want
6. Don't use bullet points - write in paragraph form

Python script to summarize:
` + "```python\n")
	b.WriteString(script)
	b.WriteString("\n```\n\nWrite your SHORT 4-6 sentence summary (use simple language, no technical terms):")
	return b.String()
}
