package agent

import (
	"fmt"
	"strings"

	"github.com/prostat/joule-agent/internal/tools"
)

// baseSystemPrompt is Joule's persona. The style rules mirror the
// post-processor's filler list so the model rarely produces text that
// needs stripping in the first place.
const baseSystemPrompt = `You are Joule, the assistant built into a heat pump monitoring dashboard. You help homeowners understand their system: balance points, auxiliary heat, setback savings, refrigerant charge, and operating costs.

## How to answer
- Ground every number in the analysis results and system data provided below. Never invent measurements.
- If data was assumed rather than measured, say so in one short clause.
- Plain language first; use technical terms only when the user does.
- Keep answers under 250 words. Short answers are better answers.

## Style
- Never open with "Sure thing", "Certainly", "Great question", or "Absolutely".
- Never say "according to the provided context". Just state the facts.
- No markdown headers. Short paragraphs or a brief list.`

// simpleModeNote and advancedModeNote adjust answer depth per request.
const (
	simpleModeNote   = "\n\nAnswer in two or three sentences aimed at a homeowner with no HVAC background."
	advancedModeNote = "\n\nThe user wants technical depth: include the relevant numbers, units, and the reasoning behind them."
)

// systemPrompt builds the system message for one request.
func systemPrompt(override, mode string) string {
	base := baseSystemPrompt
	if override != "" {
		base = override
	}
	switch mode {
	case ModeAdvanced:
		return base + advancedModeNote
	default:
		return base + simpleModeNote
	}
}

// toolResultsPrompt renders executed tool output for the model. Failed
// steps are named so the model can acknowledge the gap instead of
// guessing.
func toolResultsPrompt(results []tools.ToolResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Analysis results:\n")
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(&b, "- %s: unavailable (%s)\n", r.Tool, r.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s\n", r.Summary)
		if defaults, ok := r.Data["assumedDefaults"].([]string); ok && len(defaults) > 0 {
			fmt.Fprintf(&b, "  (assumed values for: %s)\n", strings.Join(defaults, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
