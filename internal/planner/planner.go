// Package planner maps a classified intent to an ordered list of tool
// execution steps. The mapping is a static table: plans carry no data
// dependencies between steps, and step order matters only for display.
package planner

import (
	"github.com/prostat/joule-agent/internal/intent"
)

// PlanStep names one tool invocation with its parameters and a
// human-readable reason shown in progress output.
type PlanStep struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
	Reason string         `json:"reason"`
}

// ExecutionPlan is the ordered set of steps for one question.
type ExecutionPlan struct {
	Intent          intent.Intent `json:"intent"`
	Steps           []PlanStep    `json:"steps"`
	EstimatedTimeMs int           `json:"estimatedTimeMs"`
}

// perStepEstimateMs is the nominal cost of one calculator step, used
// only for the progress UI's time estimate.
const perStepEstimateMs = 150

// planTable maps each intent to its fixed step list. Reasons are
// user-visible; keep them short and concrete.
var planTable = map[intent.Intent][]PlanStep{
	intent.IntentCostAnalysis: {
		{Tool: "balancePoint", Reason: "determine where aux heat engages"},
		{Tool: "setback", Reason: "estimate schedule savings against the bill"},
	},
	intent.IntentPerformance: {
		{Tool: "performance", Reason: "check measured draw against expected"},
	},
	intent.IntentSavings: {
		{Tool: "setback", Reason: "quantify setback savings"},
		{Tool: "balancePoint", Reason: "verify setback depth stays above aux territory"},
	},
	intent.IntentComparison: {
		{Tool: "comparison", Reason: "compare heat pump and resistance heat costs"},
	},
	intent.IntentForecast: {
		{Tool: "balancePoint", Reason: "anchor forecast against aux switchover"},
		{Tool: "comparison", Reason: "project costs over the forecast period"},
	},
	intent.IntentBalancePoint: {
		{Tool: "balancePoint", Reason: "compute thermal balance point"},
	},
	intent.IntentCharging: {
		{Tool: "charging", Reason: "derive charge-check gauge targets"},
	},
}

// CreateExecutionPlan builds the plan for a classification result. An
// unknown or general intent falls back to a single balance-point step.
// When location is missing, a requestLocation step is prepended
// unconditionally — every downstream answer improves once we know where
// the system lives.
func CreateExecutionPlan(r intent.Reasoning) ExecutionPlan {
	steps, ok := planTable[r.Intent]
	if !ok {
		steps = []PlanStep{{Tool: "balancePoint", Reason: "general analysis"}}
	}

	// Copy before mutating; the table is shared.
	out := make([]PlanStep, 0, len(steps)+1)

	for _, m := range r.MissingData {
		if m == "location" {
			out = append(out, PlanStep{
				Tool:   "requestLocation",
				Reason: "location needed for climate data",
			})
			break
		}
	}
	out = append(out, steps...)

	return ExecutionPlan{
		Intent:          r.Intent,
		Steps:           out,
		EstimatedTimeMs: len(out) * perStepEstimateMs,
	}
}
