// Package intent classifies a free-text question into a domain intent,
// extracts numeric entities, and scores the classification. The result
// feeds the planner and is surfaced to callers for observability.
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/prostat/joule-agent/internal/settings"
)

// Intent identifies what kind of analysis a question asks for.
type Intent string

const (
	IntentCostAnalysis   Intent = "cost_analysis"
	IntentPerformance    Intent = "performance_check"
	IntentSavings        Intent = "savings_optimization"
	IntentComparison     Intent = "comparison"
	IntentForecast       Intent = "forecast"
	IntentBalancePoint   Intent = "balance_point"
	IntentCharging       Intent = "charging"
	IntentGeneralInquiry Intent = "general_inquiry"
)

// patterns is the ordered classification table. Evaluation is strictly
// top to bottom and the first match wins; several patterns can match the
// same text (e.g. "compare heating costs"), so the ordering is part of
// the contract and covered by tests. Do not reorder.
var patterns = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{IntentCostAnalysis, regexp.MustCompile(`(?i)\b(cost|bill|expens|spend|budget|price|dollar|cheap)|\$`)},
	{IntentPerformance, regexp.MustCompile(`(?i)\b(performan|efficien(cy|t)\b|short.?cycl|runtime|working (properly|right|ok)|healthy|diagnos|cop\b)`)},
	{IntentSavings, regexp.MustCompile(`(?i)\b(sav(e|ing)|optimi[sz]|reduce|lower my|cut (back|down))`)},
	{IntentComparison, regexp.MustCompile(`(?i)\b(compar|versus|\bvs\.?\b|better than|worse than|difference between)`)},
	{IntentForecast, regexp.MustCompile(`(?i)\b(forecast|tomorrow|next (week|month|[a-z]+day)|this (week|weekend)|in \d+ days?|upcoming|will it)`)},
	{IntentBalancePoint, regexp.MustCompile(`(?i)\b(balance.?point|lockout|aux(iliary)?\s+(heat|cut|switch)|strip heat|switch.?over|crossover temp)`)},
	{IntentCharging, regexp.MustCompile(`(?i)\b(charg(e|ing)|refrigerant|subcool|superheat|low on (freon|refrigerant))`)},
}

// DetectIntent returns the first intent whose pattern matches text, or
// general_inquiry when nothing matches.
func DetectIntent(text string) Intent {
	for _, p := range patterns {
		if p.pattern.MatchString(text) {
			return p.intent
		}
	}
	return IntentGeneralInquiry
}

// EntitySet holds numeric values pulled from the question text. Nil
// pointers mean "not mentioned". Entities live for one request only.
type EntitySet struct {
	Temperature *float64 `json:"temperature,omitempty"`
	SquareFeet  *float64 `json:"squareFeet,omitempty"`
}

// Count returns how many entities were extracted.
func (e EntitySet) Count() int {
	n := 0
	if e.Temperature != nil {
		n++
	}
	if e.SquareFeet != nil {
		n++
	}
	return n
}

var (
	// Matches "72°F", "72 F", "72 degrees", "72 degrees Fahrenheit".
	tempRe = regexp.MustCompile(`(?i)(-?\d{1,3})\s*(?:°\s*f\b|deg(?:rees?)?(?:\s*f(?:ahrenheit)?)?\b|f\b)`)

	// Matches "2000 sq ft", "2,400 square feet", "1800sqft".
	sqftRe = regexp.MustCompile(`(?i)([\d,]+)\s*(?:sq\.?\s*\.?\s*ft\.?|sq\s*feet|square\s*f(?:ee|oo)t|sqft)`)
)

// ExtractEntities pulls a Fahrenheit temperature and a square footage
// from free text. Rules run in fixed order; the first match of each kind
// wins. Thousands separators in footage are tolerated.
func ExtractEntities(text string) EntitySet {
	var e EntitySet

	if m := tempRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			e.Temperature = &v
		}
	}

	if m := sqftRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			e.SquareFeet = &v
		}
	}

	return e
}

// intentsNeedingSizing lists the intents whose calculators cannot run
// without knowing the building and where it is.
var intentsNeedingSizing = map[Intent]bool{
	IntentCostAnalysis: true,
	IntentForecast:     true,
	IntentComparison:   true,
}

// IdentifyMissingData returns the inputs the given intent needs that
// neither the question nor the stored settings supply. Recognized values:
// "squareFeet" and "location".
func IdentifyMissingData(entities EntitySet, cfg *settings.Settings, in Intent) []string {
	if !intentsNeedingSizing[in] {
		return nil
	}

	var missing []string
	if entities.SquareFeet == nil && (cfg == nil || cfg.SquareFeet <= 0) {
		missing = append(missing, "squareFeet")
	}
	if cfg == nil || cfg.Location == nil || (!cfg.Location.HasCoordinates() && !cfg.Location.HasCityState()) {
		missing = append(missing, "location")
	}
	return missing
}

// CalculateConfidence scores a classification. Base 0.5; +0.3 for a
// specific intent; +0.1 per extracted entity capped at +0.3; −0.1 per
// missing input. Always clamped to [0.3, 1.0].
func CalculateConfidence(in Intent, entities EntitySet, missing []string) float64 {
	conf := 0.5
	if in != IntentGeneralInquiry {
		conf += 0.3
	}
	entityBoost := 0.1 * float64(entities.Count())
	if entityBoost > 0.3 {
		entityBoost = 0.3
	}
	conf += entityBoost
	conf -= 0.1 * float64(len(missing))

	if conf < 0.3 {
		conf = 0.3
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// Reasoning is the full classification result for one question.
type Reasoning struct {
	Intent      Intent    `json:"intent"`
	Entities    EntitySet `json:"entities"`
	MissingData []string  `json:"missingData,omitempty"`
	Confidence  float64   `json:"confidence"`
	Explanation string    `json:"explanation"`
}

// Classify runs the full classification: intent, entities, missing data,
// and confidence. cfg may be nil.
func Classify(text string, cfg *settings.Settings) Reasoning {
	in := DetectIntent(text)
	entities := ExtractEntities(text)
	missing := IdentifyMissingData(entities, cfg, in)
	conf := CalculateConfidence(in, entities, missing)

	explanation := fmt.Sprintf("classified as %s (%d entities", in, entities.Count())
	if len(missing) > 0 {
		explanation += fmt.Sprintf(", missing %s", strings.Join(missing, ", "))
	}
	explanation += ")"

	return Reasoning{
		Intent:      in,
		Entities:    entities,
		MissingData: missing,
		Confidence:  conf,
		Explanation: explanation,
	}
}
