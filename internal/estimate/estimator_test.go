package estimate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/pkg/logger"
)

type stubOracle struct {
	resp string
	err  error
}

func (s *stubOracle) Prompt(context.Context, string) (string, error) {
	return s.resp, s.err
}

func newTestEstimator(oracle *stubOracle) *Estimator {
	e := New(oracle, logger.NewStd(false))
	e.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	return e
}

const renameScript = `import os
import shutil

def main():
    for name in os.listdir('/home/user/Downloads'):
        shutil.move('/home/user/Downloads/' + name, '/home/user/Photos/' + name)

if __name__ == '__main__':
    main()
`

func TestEstimateBlendsOracleAndHeuristic(t *testing.T) {
	oracle := &stubOracle{resp: `{"estimated_minutes": 1, "confidence": 0.9, "reasoning": "simple moves"}`}
	e := newTestEstimator(oracle)

	est := e.Estimate(context.Background(), renameScript, "moving photos", domain.ExecutionRecord{Success: true})
	require.Greater(t, est.EstimatedSeconds, 0)
	require.LessOrEqual(t, est.EstimatedSeconds, domain.MaxTimeSavedSeconds)
	require.Equal(t, "simple moves", est.Reasoning)
	require.InDelta(t, (0.6+0.9)/2, est.Confidence, 0.001)
	require.Contains(t, est.Breakdown, "ai_estimation_seconds")
	require.Equal(t, 60, est.Breakdown["ai_estimation_seconds"])
}

func TestEstimateNeverExceedsCap(t *testing.T) {
	oracle := &stubOracle{resp: `{"estimated_minutes": 120, "confidence": 0.9, "reasoning": "huge job"}`}
	e := newTestEstimator(oracle)

	est := e.Estimate(context.Background(), renameScript, "massive batch", domain.ExecutionRecord{Success: true})
	require.Equal(t, domain.MaxTimeSavedSeconds, est.EstimatedSeconds)
}

func TestFailedExecutionShrinksEstimate(t *testing.T) {
	oracle := &stubOracle{resp: `{"estimated_minutes": 2, "confidence": 0.9, "reasoning": "moves"}`}
	e := newTestEstimator(oracle)

	ok := e.Estimate(context.Background(), renameScript, "moving photos", domain.ExecutionRecord{Success: true})
	failed := e.Estimate(context.Background(), renameScript, "moving photos", domain.ExecutionRecord{Success: false})
	require.Less(t, failed.EstimatedSeconds, ok.EstimatedSeconds)
}

func TestOracleErrorFallsBackToDefault(t *testing.T) {
	oracle := &stubOracle{err: errors.New("oracle down")}
	e := newTestEstimator(oracle)

	est := e.Estimate(context.Background(), renameScript, "moving photos", domain.ExecutionRecord{Success: true})
	require.Equal(t, "Fallback estimation", est.Reasoning)
	require.Greater(t, est.EstimatedSeconds, 0)
}

func TestNonJSONResponseUsesFirstInteger(t *testing.T) {
	oracle := &stubOracle{resp: "I think this saves about 2 minutes of manual work."}
	e := newTestEstimator(oracle)

	est := e.Estimate(context.Background(), renameScript, "moving photos", domain.ExecutionRecord{Success: true})
	require.Equal(t, "Extracted from oracle response", est.Reasoning)
	require.Equal(t, 120, est.Breakdown["ai_estimation_seconds"])
}

func TestFencedJSONStillParses(t *testing.T) {
	oracle := &stubOracle{resp: "```json\n{\"estimated_minutes\": 1, \"confidence\": 0.8, \"reasoning\": \"ok\"}\n```"}
	e := newTestEstimator(oracle)

	est := e.Estimate(context.Background(), renameScript, "moving photos", domain.ExecutionRecord{Success: true})
	require.Equal(t, "ok", est.Reasoning)
}

func TestComplexityScoreIsBounded(t *testing.T) {
	require.Equal(t, 0, complexityScore(""))

	var big string
	for i := 0; i < 50; i++ {
		big += "for x in range(10):\n    while True:\n        if x:\n            pass\n"
	}
	require.Equal(t, 20, complexityScore(big))
}

func TestAnalyzeScriptDetectsOperationCategories(t *testing.T) {
	analysis := analyzeScript(renameScript)
	require.Contains(t, analysis.operationTypes, "file_operations")
	require.NotEmpty(t, analysis.operations["file_operations"])
}
