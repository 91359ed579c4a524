package calc

import "math"

// PerformanceInput describes current operating conditions.
type PerformanceInput struct {
	CapacityBTU float64 // nominal heating capacity in BTU/hr
	HSPF2       float64
	OutdoorTemp float64 // °F
	IndoorTemp  float64 // °F
	HumidityPct float64 // outdoor relative humidity, 0–100
	PowerWatts  float64 // measured compressor draw; 0 = not measured
}

// PerformanceResult reports expected vs. measured operating performance.
type PerformanceResult struct {
	ExpectedCOP     float64
	EffectiveCOP    float64 // after defrost penalty
	DeliveredBTUHr  float64 // capacity available at current temp
	ExpectedWatts   float64 // draw implied by delivered capacity and COP
	DeviationPct    float64 // measured vs expected draw; 0 when unmeasured
	DefrostPenalty  float64 // multiplier ≥ 1
	CapacityPercent float64 // derated capacity as % of nominal
}

// Performance computes expected operating numbers at current conditions
// and, when a measured power draw is supplied, the deviation from them.
// A sustained deviation beyond ±15% is the dashboard's "check charge"
// threshold.
func Performance(in PerformanceInput) PerformanceResult {
	var res PerformanceResult
	if in.CapacityBTU <= 0 {
		return res
	}

	factor := CapacityFactor(in.OutdoorTemp, -15)
	res.CapacityPercent = factor * 100
	res.DeliveredBTUHr = in.CapacityBTU * factor
	res.ExpectedCOP = COPFactor(in.OutdoorTemp, in.HSPF2)
	res.DefrostPenalty = DefrostPenalty(in.OutdoorTemp, in.HumidityPct)
	res.EffectiveCOP = math.Max(0.5, res.ExpectedCOP/res.DefrostPenalty)

	if res.EffectiveCOP > 0 {
		res.ExpectedWatts = res.DeliveredBTUHr / (res.EffectiveCOP * BTUPerKWh) * 1000
	}
	if in.PowerWatts > 0 && res.ExpectedWatts > 0 {
		res.DeviationPct = (in.PowerWatts - res.ExpectedWatts) / res.ExpectedWatts * 100
	}
	return res
}

// ChargingInput describes conditions for a refrigerant charging check.
type ChargingInput struct {
	Mode        string  // "heating" or "cooling"
	OutdoorTemp float64 // °F
	IndoorTemp  float64 // °F
}

// ChargingResult carries target gauge values for a charging check.
type ChargingResult struct {
	Feasible         bool
	Reason           string  // set when Feasible is false
	TargetSubcoolF   float64 // cooling mode
	TargetSuperheatF float64
}

// ChargingTargets returns the gauge targets for verifying refrigerant
// charge. Charging checks in cooling mode need at least 65°F outdoors for
// stable readings; heating-mode checks use vapor-line superheat and are
// unreliable below 20°F.
func ChargingTargets(in ChargingInput) ChargingResult {
	switch in.Mode {
	case "cooling":
		if in.OutdoorTemp < 65 {
			return ChargingResult{Reason: "outdoor temperature below 65°F; cooling-mode charge check unreliable"}
		}
		return ChargingResult{
			Feasible:         true,
			TargetSubcoolF:   10,
			TargetSuperheatF: 12 + math.Max(0, in.IndoorTemp-75)*0.5,
		}
	case "heating":
		if in.OutdoorTemp < 20 {
			return ChargingResult{Reason: "outdoor temperature below 20°F; defer charge check to milder weather"}
		}
		return ChargingResult{
			Feasible:         true,
			TargetSuperheatF: 8 + (in.OutdoorTemp-20)*0.2,
		}
	default:
		return ChargingResult{Reason: "unknown mode; expected heating or cooling"}
	}
}
