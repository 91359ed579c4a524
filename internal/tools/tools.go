// Package tools defines the analysis tools the planner can schedule and
// the registry that dispatches to them. Every tool is a thin adapter over
// internal/calc: it merges parameters, runs the calculator, and shapes the
// result for the prompt builder.
package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prostat/joule-agent/internal/calc"
	"github.com/prostat/joule-agent/internal/settings"
)

// Tool is a callable analysis step.
type Tool struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, p map[string]any, cfg *settings.Settings) (data map[string]any, summary string, err error)
}

// ToolResult is the outcome of one tool invocation. Either Data/Summary or
// Error is set; a failed step never aborts the plan.
type ToolResult struct {
	Tool    string         `json:"tool"`
	Data    map[string]any `json:"data,omitempty"`
	Summary string         `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// Registry holds the available tools.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry builds a registry with the built-in analysis tools.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	r.registerBuiltins()
	return r
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get returns the named tool, or nil if unknown.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns the registered tool names in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "balancePoint",
		Description: "Compute the outdoor temperature where heat pump capacity meets building heat loss, plus a recommended compressor lockout.",
		Handler:     handleBalancePoint,
	})
	r.Register(&Tool{
		Name:        "setback",
		Description: "Estimate energy and dollar savings from a nightly thermostat setback.",
		Handler:     handleSetback,
	})
	r.Register(&Tool{
		Name:        "performance",
		Description: "Compare expected COP and power draw against current conditions and measured draw.",
		Handler:     handlePerformance,
	})
	r.Register(&Tool{
		Name:        "comparison",
		Description: "Compare daily heating cost of the heat pump versus resistance aux heat.",
		Handler:     handleComparison,
	})
	r.Register(&Tool{
		Name:        "charging",
		Description: "Return refrigerant charge verification targets for current conditions.",
		Handler:     handleCharging,
	})
	r.Register(&Tool{
		Name:        "requestLocation",
		Description: "Ask the user to set their location so climate-dependent estimates can be grounded.",
		Handler:     handleRequestLocation,
	})
}

// Fallbacks used when neither step parameters nor stored settings supply a
// value. These describe a typical 2000 sq ft home with a 3-ton system.
const (
	defaultSquareFeet  = 2000
	defaultCapacityK   = 36 // kBTU/hr nominal
	defaultHSPF2       = 9
	defaultRatePerKWh  = 0.15
	defaultOutdoorTemp = 35
	defaultIndoorTemp  = 70
)

// resolver merges tool inputs with precedence step params > stored
// settings > built-in default, and records which keys fell through to the
// default so answers can disclose assumptions.
type resolver struct {
	params  map[string]any
	assumed []string
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// num resolves a required numeric input. settingsVal participates only
// when positive; zero means "not configured".
func (r *resolver) num(key string, settingsVal, def float64) float64 {
	if v, ok := toFloat(r.params[key]); ok {
		return v
	}
	if settingsVal > 0 {
		return settingsVal
	}
	r.assumed = append(r.assumed, key)
	return def
}

// numOpt resolves an optional numeric input without recording assumptions.
// The calculators treat a zero as "use your own default".
func (r *resolver) numOpt(key string, settingsVal float64) float64 {
	if v, ok := toFloat(r.params[key]); ok {
		return v
	}
	return settingsVal
}

func (r *resolver) str(key, def string) string {
	if s, ok := r.params[key].(string); ok && s != "" {
		return s
	}
	return def
}

// finish attaches the assumed-defaults disclosure to a data payload.
func (r *resolver) finish(data map[string]any) map[string]any {
	if len(r.assumed) > 0 {
		data["assumedDefaults"] = r.assumed
	}
	return data
}

func handleBalancePoint(_ context.Context, p map[string]any, cfg *settings.Settings) (map[string]any, string, error) {
	r := &resolver{params: p}
	in := calc.BalancePointInput{
		CapacityBTU:    r.num("capacity", cfg.Capacity, defaultCapacityK) * 1000,
		SquareFeet:     r.num("squareFeet", cfg.SquareFeet, defaultSquareFeet),
		InsulationLvl:  r.numOpt("insulationLevel", cfg.InsulationLevel),
		HomeShape:      r.numOpt("homeShape", cfg.HomeShape),
		CeilingHeight:  r.numOpt("ceilingHeight", cfg.CeilingHeight),
		IndoorSetpoint: r.numOpt("indoorTemp", 0),
	}
	res := calc.BalancePoint(in)

	data := map[string]any{
		"balancePoint":  res.BalancePoint,
		"designLossBTU": res.DesignLossBTU,
		"defined":       res.Defined,
	}
	summary := "Balance point: not reached above the compressor cutoff; the system carries the load unaided"
	if res.Defined {
		lockout, clamped := calc.RecommendedLockout(res.BalancePoint)
		data["recommendedLockout"] = lockout
		data["lockoutClamped"] = clamped
		summary = fmt.Sprintf("Balance point: %.0f°F", res.BalancePoint)
	}
	return r.finish(data), summary, nil
}

func handleSetback(_ context.Context, p map[string]any, cfg *settings.Settings) (map[string]any, string, error) {
	r := &resolver{params: p}
	loss := calc.DesignHeatLoss(
		r.num("squareFeet", cfg.SquareFeet, defaultSquareFeet),
		r.numOpt("insulationLevel", cfg.InsulationLevel),
		r.numOpt("homeShape", cfg.HomeShape),
		r.numOpt("ceilingHeight", cfg.CeilingHeight),
	)
	in := calc.SetbackInput{
		DesignLossBTU:  loss,
		IndoorSetpoint: r.numOpt("indoorTemp", defaultIndoorTemp),
		SetbackDegrees: r.numOpt("setbackDegrees", 5),
		SetbackHours:   r.numOpt("setbackHours", 8),
		OutdoorAvg:     r.num("outdoorTemp", 0, defaultOutdoorTemp),
		HSPF2:          r.num("hspf2", cfg.HSPF2, defaultHSPF2),
		RatePerKWh:     r.num("electricRate", cfg.ElectricRate, defaultRatePerKWh),
	}
	res := calc.SetbackSavings(in)

	data := map[string]any{
		"dailyKWhSaved":   res.DailyKWhSaved,
		"dailySavingsUSD": res.DailySavingsUSD,
		"monthlyUSD":      res.MonthlyUSD,
		"savingsPct":      res.SavingsPct,
		"setbackDegrees":  in.SetbackDegrees,
		"setbackHours":    in.SetbackHours,
	}
	summary := fmt.Sprintf("Setback savings: $%.2f/month (%.1f%% of heating energy)", res.MonthlyUSD, res.SavingsPct)
	return r.finish(data), summary, nil
}

func handlePerformance(_ context.Context, p map[string]any, cfg *settings.Settings) (map[string]any, string, error) {
	r := &resolver{params: p}
	in := calc.PerformanceInput{
		CapacityBTU: r.num("capacity", cfg.Capacity, defaultCapacityK) * 1000,
		HSPF2:       r.num("hspf2", cfg.HSPF2, defaultHSPF2),
		OutdoorTemp: r.num("outdoorTemp", 0, defaultOutdoorTemp),
		IndoorTemp:  r.numOpt("indoorTemp", defaultIndoorTemp),
		HumidityPct: r.numOpt("humidity", 50),
		PowerWatts:  r.numOpt("powerWatts", 0),
	}
	res := calc.Performance(in)

	data := map[string]any{
		"expectedCOP":     res.ExpectedCOP,
		"effectiveCOP":    res.EffectiveCOP,
		"deliveredBTUHr":  res.DeliveredBTUHr,
		"expectedWatts":   res.ExpectedWatts,
		"defrostPenalty":  res.DefrostPenalty,
		"capacityPercent": res.CapacityPercent,
	}
	if in.PowerWatts > 0 {
		data["deviationPct"] = res.DeviationPct
	}
	summary := fmt.Sprintf("Expected COP %.1f at %.0f°F (%.0f%% of nominal capacity)",
		res.EffectiveCOP, in.OutdoorTemp, res.CapacityPercent)
	if in.PowerWatts > 0 {
		summary += fmt.Sprintf("; measured draw deviates %+.0f%% from expected", res.DeviationPct)
	}
	return r.finish(data), summary, nil
}

func handleComparison(_ context.Context, p map[string]any, cfg *settings.Settings) (map[string]any, string, error) {
	r := &resolver{params: p}
	in := calc.ComparisonInput{
		CapacityBTU:    r.num("capacity", cfg.Capacity, defaultCapacityK) * 1000,
		HSPF2:          r.num("hspf2", cfg.HSPF2, defaultHSPF2),
		SquareFeet:     r.num("squareFeet", cfg.SquareFeet, defaultSquareFeet),
		InsulationLvl:  r.numOpt("insulationLevel", cfg.InsulationLevel),
		HomeShape:      r.numOpt("homeShape", cfg.HomeShape),
		CeilingHeight:  r.numOpt("ceilingHeight", cfg.CeilingHeight),
		IndoorSetpoint: r.numOpt("indoorTemp", 0),
		OutdoorAvg:     r.num("outdoorTemp", 0, defaultOutdoorTemp),
		HoursPerDay:    r.numOpt("hoursPerDay", 0),
		RatePerKWh:     r.num("electricRate", cfg.ElectricRate, defaultRatePerKWh),
	}
	res := calc.Compare(in)

	data := map[string]any{
		"balancePoint":   res.BalancePoint,
		"heatPumpKWhDay": res.HeatPumpKWhDay,
		"auxKWhDay":      res.AuxKWhDay,
		"heatPumpUSDDay": res.HeatPumpUSDDay,
		"auxUSDDay":      res.AuxUSDDay,
		"savingsUSDDay":  res.SavingsUSDDay,
	}
	summary := fmt.Sprintf("Heat pump $%.2f/day vs aux heat $%.2f/day at %.0f°F average (saves $%.2f/day)",
		res.HeatPumpUSDDay, res.AuxUSDDay, in.OutdoorAvg, res.SavingsUSDDay)
	return r.finish(data), summary, nil
}

func handleCharging(_ context.Context, p map[string]any, cfg *settings.Settings) (map[string]any, string, error) {
	r := &resolver{params: p}
	in := calc.ChargingInput{
		Mode:        r.str("mode", "heating"),
		OutdoorTemp: r.num("outdoorTemp", 0, defaultOutdoorTemp),
		IndoorTemp:  r.numOpt("indoorTemp", defaultIndoorTemp),
	}
	res := calc.ChargingTargets(in)

	data := map[string]any{
		"feasible": res.Feasible,
		"mode":     in.Mode,
	}
	if !res.Feasible {
		data["reason"] = res.Reason
		return r.finish(data), "Charge check not feasible: " + res.Reason, nil
	}
	data["targetSuperheatF"] = res.TargetSuperheatF
	summary := fmt.Sprintf("Target superheat %.1f°F in %s mode at %.0f°F outdoors",
		res.TargetSuperheatF, in.Mode, in.OutdoorTemp)
	if in.Mode == "cooling" {
		data["targetSubcoolF"] = res.TargetSubcoolF
		summary = fmt.Sprintf("Target subcool %.1f°F, superheat %.1f°F in cooling mode",
			res.TargetSubcoolF, res.TargetSuperheatF)
	}
	return r.finish(data), summary, nil
}

func handleRequestLocation(_ context.Context, _ map[string]any, _ *settings.Settings) (map[string]any, string, error) {
	data := map[string]any{"needsLocation": true}
	summary := "Location is not set. Climate-dependent estimates below use generic assumptions; set a city/state or coordinates in settings for grounded numbers."
	return data, summary, nil
}
