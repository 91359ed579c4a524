package calc

import "math"

// BalancePointInput holds the inputs to the balance point calculation.
type BalancePointInput struct {
	CapacityBTU    float64 // nominal heating capacity in BTU/hr
	SquareFeet     float64
	InsulationLvl  float64 // dimensionless, ~1.0
	HomeShape      float64 // dimensionless, ~1.0
	CeilingHeight  float64 // feet
	IndoorSetpoint float64 // °F, defaults to 70
	CutoffTemp     float64 // compressor low-temperature cutoff, °F
}

// BalancePointResult is the outcome of a balance point calculation.
type BalancePointResult struct {
	BalancePoint  float64 // °F, outdoor temp where capacity meets load
	DesignLossBTU float64 // BTU/hr at 70°F delta
	Defined       bool    // false when capacity always exceeds load in range
}

// BalancePoint finds the outdoor temperature below which the heat pump's
// derated capacity can no longer meet the building's heat loss. The crossing
// is located by scanning downward in 0.5°F steps across the practical
// outdoor range; resolution finer than this is noise given the input
// accuracy.
func BalancePoint(in BalancePointInput) BalancePointResult {
	if in.IndoorSetpoint <= 0 {
		in.IndoorSetpoint = 70
	}
	if in.CutoffTemp == 0 {
		in.CutoffTemp = -15
	}

	designLoss := DesignHeatLoss(in.SquareFeet, in.InsulationLvl, in.HomeShape, in.CeilingHeight)
	res := BalancePointResult{DesignLossBTU: designLoss}
	if designLoss <= 0 || in.CapacityBTU <= 0 {
		return res
	}

	lossPerDeg := designLoss / 70

	// Scan stops at the compressor cutoff: below it capacity is zero by
	// definition, which is a lockout condition, not a thermal balance.
	for t := 60.0; t > in.CutoffTemp; t -= 0.5 {
		load := lossPerDeg * math.Max(0, in.IndoorSetpoint-t)
		capacity := in.CapacityBTU * CapacityFactor(t, in.CutoffTemp)
		if capacity < load {
			res.BalancePoint = t
			res.Defined = true
			return res
		}
	}

	// Capacity meets load all the way down to the cutoff; no balance
	// point above lockout.
	return res
}

// RecommendedLockout derives a compressor lockout temperature from a
// resolved balance point: 5–10°F below it (midpoint 7.5, rounded to the
// nearest whole degree), clamped to a 15°F floor to protect the
// compressor. The second return reports whether the clamp engaged.
func RecommendedLockout(balancePoint float64) (float64, bool) {
	lockout := math.Round(balancePoint - 7.5)
	if lockout < 15 {
		return 15, true
	}
	return lockout, false
}
