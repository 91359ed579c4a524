package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prostat/joule-agent/internal/planner"
	"github.com/prostat/joule-agent/internal/settings"
)

// Progress describes one plan step about to run, for UI status lines.
type Progress struct {
	Step   int    `json:"step"` // 1-based
	Total  int    `json:"total"`
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// ProgressFunc receives a Progress before each step executes. May be nil.
type ProgressFunc func(Progress)

// ExecutionResult aggregates the outcome of a full plan.
type ExecutionResult struct {
	Results     []ToolResult `json:"results"`
	ToolsUsed   []string     `json:"toolsUsed"`
	TotalTimeMs int64        `json:"totalTimeMs"`
}

// Executor runs execution plans against a registry. Steps run
// sequentially in plan order; a failed or unknown step is recorded and
// the remaining steps still run.
type Executor struct {
	reg *Registry
	log *slog.Logger
}

// NewExecutor creates an executor over reg.
func NewExecutor(reg *Registry, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{reg: reg, log: log}
}

// Execute runs every step of plan and returns all results. cfg supplies
// stored settings for parameter merging; it must not be nil.
func (e *Executor) Execute(ctx context.Context, plan planner.ExecutionPlan, cfg *settings.Settings, onProgress ProgressFunc) ExecutionResult {
	start := time.Now()
	out := ExecutionResult{
		Results:   make([]ToolResult, 0, len(plan.Steps)),
		ToolsUsed: make([]string, 0, len(plan.Steps)),
	}

	for i, step := range plan.Steps {
		if onProgress != nil {
			onProgress(Progress{Step: i + 1, Total: len(plan.Steps), Tool: step.Tool, Reason: step.Reason})
		}

		res := e.runStep(ctx, step, cfg)
		out.Results = append(out.Results, res)
		out.ToolsUsed = append(out.ToolsUsed, step.Tool)

		if res.Error != "" {
			e.log.Warn("tool step failed", "tool", step.Tool, "error", res.Error)
		} else {
			e.log.Debug("tool step complete", "tool", step.Tool, "summary", res.Summary)
		}
	}

	out.TotalTimeMs = time.Since(start).Milliseconds()
	return out
}

func (e *Executor) runStep(ctx context.Context, step planner.PlanStep, cfg *settings.Settings) ToolResult {
	res := ToolResult{Tool: step.Tool, Params: step.Params}

	t := e.reg.Get(step.Tool)
	if t == nil {
		res.Error = "Tool not found"
		return res
	}

	data, summary, err := t.Handler(ctx, step.Params, cfg)
	if err != nil {
		res.Error = fmt.Sprintf("%s failed: %v", step.Tool, err)
		return res
	}
	res.Data = data
	res.Summary = summary
	return res
}
