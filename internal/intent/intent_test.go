package intent

import (
	"slices"
	"testing"

	"github.com/prostat/joule-agent/internal/settings"
)

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  Intent
	}{
		{name: "cost", text: "how much does heating cost this month", want: IntentCostAnalysis},
		{name: "bill", text: "why is my bill so high", want: IntentCostAnalysis},
		{name: "dollar sign", text: "am I going to spend over $200", want: IntentCostAnalysis},
		{name: "performance", text: "is my system performance normal", want: IntentPerformance},
		{name: "short cycling", text: "the unit keeps short cycling", want: IntentPerformance},
		{name: "savings", text: "how can I save energy overnight", want: IntentSavings},
		{name: "optimize", text: "optimize my schedule for me", want: IntentSavings},
		{name: "comparison", text: "compare heat pump and aux heat", want: IntentComparison},
		{name: "versus", text: "heat pump versus gas furnace", want: IntentComparison},
		{name: "forecast", text: "what will tomorrow look like", want: IntentForecast},
		{name: "relative day", text: "what about next Friday", want: IntentForecast},
		{name: "in n days", text: "how cold will it be in 3 days", want: IntentForecast},
		{name: "balance point", text: "what is my balance point", want: IntentBalancePoint},
		{name: "lockout", text: "where should I set my compressor lockout", want: IntentBalancePoint},
		{name: "strip heat", text: "when does strip heat come on", want: IntentBalancePoint},
		{name: "charging", text: "is my refrigerant charge low", want: IntentCharging},
		{name: "subcool", text: "what subcooling should I see", want: IntentCharging},
		{name: "general", text: "what is my system type", want: IntentGeneralInquiry},
		{name: "empty", text: "", want: IntentGeneralInquiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectIntent(tt.text)
			if got != tt.want {
				t.Errorf("DetectIntent(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

// Ordering is a contract: when multiple patterns match, the earlier row
// wins. A cost question that also compares must classify as cost.
func TestDetectIntentOrdering(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{name: "cost beats comparison", text: "compare the cost of heat pump and furnace", want: IntentCostAnalysis},
		{name: "cost beats forecast", text: "what will heating cost tomorrow", want: IntentCostAnalysis},
		{name: "performance beats comparison", text: "compare efficiency of both units", want: IntentPerformance},
		{name: "savings beats balance point", text: "save money by adjusting the lockout", want: IntentSavings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectIntent(tt.text); got != tt.want {
				t.Errorf("DetectIntent(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractEntities(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		text string
		want EntitySet
	}{
		{name: "degree symbol", text: "set it to 72°F please", want: EntitySet{Temperature: f(72)}},
		{name: "degrees word", text: "keep it at 68 degrees", want: EntitySet{Temperature: f(68)}},
		{name: "bare F", text: "is 65 F too cold", want: EntitySet{Temperature: f(65)}},
		{name: "negative", text: "it hit -5°F last night", want: EntitySet{Temperature: f(-5)}},
		{name: "sq ft", text: "my house is 2000 sq ft", want: EntitySet{SquareFeet: f(2000)}},
		{name: "square feet", text: "a 1800 square feet ranch", want: EntitySet{SquareFeet: f(1800)}},
		{name: "thousands separator", text: "about 2,400 sq ft", want: EntitySet{SquareFeet: f(2400)}},
		{name: "both", text: "heat 2000 sq ft to 70°F", want: EntitySet{Temperature: f(70), SquareFeet: f(2000)}},
		{name: "neither", text: "what is a heat pump", want: EntitySet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractEntities(tt.text)
			if !floatPtrEq(got.Temperature, tt.want.Temperature) {
				t.Errorf("Temperature = %v, want %v", deref(got.Temperature), deref(tt.want.Temperature))
			}
			if !floatPtrEq(got.SquareFeet, tt.want.SquareFeet) {
				t.Errorf("SquareFeet = %v, want %v", deref(got.SquareFeet), deref(tt.want.SquareFeet))
			}
		})
	}
}

func TestIdentifyMissingData(t *testing.T) {
	sqft := 2000.0
	full := &settings.Settings{
		SquareFeet: 2000,
		Location:   &settings.Location{City: "Asheville", State: "NC"},
	}

	tests := []struct {
		name     string
		entities EntitySet
		cfg      *settings.Settings
		intent   Intent
		want     []string
	}{
		{name: "nothing stored", entities: EntitySet{}, cfg: nil, intent: IntentCostAnalysis, want: []string{"squareFeet", "location"}},
		{name: "settings cover it", entities: EntitySet{}, cfg: full, intent: IntentCostAnalysis, want: nil},
		{name: "entity covers sqft", entities: EntitySet{SquareFeet: &sqft}, cfg: &settings.Settings{}, intent: IntentForecast, want: []string{"location"}},
		{name: "coords count as location", entities: EntitySet{}, cfg: &settings.Settings{SquareFeet: 1500, Location: &settings.Location{Latitude: 35, Longitude: -82}}, intent: IntentComparison, want: nil},
		{name: "balance point needs nothing", entities: EntitySet{}, cfg: nil, intent: IntentBalancePoint, want: nil},
		{name: "general needs nothing", entities: EntitySet{}, cfg: nil, intent: IntentGeneralInquiry, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IdentifyMissingData(tt.entities, tt.cfg, tt.intent)
			if !slices.Equal(got, tt.want) {
				t.Errorf("IdentifyMissingData() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	temp, sqft := 70.0, 2000.0

	tests := []struct {
		name     string
		intent   Intent
		entities EntitySet
		missing  []string
		want     float64
	}{
		{name: "general no entities", intent: IntentGeneralInquiry, want: 0.5},
		{name: "specific intent", intent: IntentBalancePoint, want: 0.8},
		{name: "specific with entities", intent: IntentCostAnalysis, entities: EntitySet{Temperature: &temp, SquareFeet: &sqft}, want: 1.0},
		{name: "missing data penalty", intent: IntentCostAnalysis, missing: []string{"squareFeet", "location"}, want: 0.6},
		{name: "clamped low", intent: IntentGeneralInquiry, missing: []string{"a", "b", "c"}, want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateConfidence(tt.intent, tt.entities, tt.missing)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CalculateConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Confidence must stay in [0.3, 1.0] across a sweep of inputs.
func TestConfidenceBounds(t *testing.T) {
	temp := 70.0
	entities := []EntitySet{{}, {Temperature: &temp}}
	missings := [][]string{nil, {"squareFeet"}, {"squareFeet", "location"}, {"a", "b", "c", "d", "e", "f"}}
	intents := []Intent{IntentGeneralInquiry, IntentCostAnalysis, IntentForecast}

	for _, in := range intents {
		for _, e := range entities {
			for _, m := range missings {
				got := CalculateConfidence(in, e, m)
				if got < 0.3 || got > 1.0 {
					t.Fatalf("confidence %v out of bounds for %v/%d/%d", got, in, e.Count(), len(m))
				}
			}
		}
	}
}

func TestClassify(t *testing.T) {
	cfg := &settings.Settings{SquareFeet: 2000, Location: &settings.Location{City: "Asheville", State: "NC"}}
	r := Classify("what is my balance point at 2000 sq ft?", cfg)

	if r.Intent != IntentBalancePoint {
		t.Errorf("Intent = %v", r.Intent)
	}
	if r.Entities.SquareFeet == nil || *r.Entities.SquareFeet != 2000 {
		t.Errorf("SquareFeet entity = %v", deref(r.Entities.SquareFeet))
	}
	if len(r.MissingData) != 0 {
		t.Errorf("MissingData = %v", r.MissingData)
	}
	if r.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", r.Confidence)
	}
	if r.Explanation == "" {
		t.Error("Explanation empty")
	}
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
