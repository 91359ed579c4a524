// Package calc implements the pure HVAC physics calculators consumed as
// tools by the agent pipeline. All functions are deterministic, take
// explicit inputs, and never touch I/O — the tools package owns defaults
// merging and settings plumbing.
package calc

import "math"

const (
	// BTUPerKWh converts electrical energy to heat energy.
	BTUPerKWh = 3412.14

	// BTUPerTon is the nominal capacity of one ton of refrigeration.
	BTUPerTon = 12000
)

// hspf2BinHours is the AHRI climate-region-IV bin-hour distribution used
// to scale the COP curve so its seasonal average matches a rated HSPF2.
var hspf2BinHours = [][2]float64{
	{62, 87}, {57, 183}, {52, 294}, {47, 358}, {42, 415}, {37, 460},
	{33, 430}, {28, 407}, {23, 311}, {18, 239}, {13, 152}, {8, 91},
	{3, 47}, {-2, 20}, {-7, 8}, {-13, 3},
}

// CapacityFactor returns the fraction of nominal capacity a heat pump
// delivers at the given outdoor temperature. 1.0 at or above 47°F,
// declining linearly to 0.64 at 17°F, steeper below, and 0 at or below
// the compressor cutoff.
func CapacityFactor(tempOut, cutoffTemp float64) float64 {
	if tempOut <= cutoffTemp {
		return 0
	}
	if tempOut >= 47 {
		return 1
	}
	if tempOut < 17 {
		return math.Max(0, 0.64-(17-tempOut)*0.01)
	}
	return 1 - (47-tempOut)*0.012
}

// baseCOP is the unscaled COP curve shape.
func baseCOP(tempOut float64) float64 {
	if tempOut >= 47 {
		return 4.8
	}
	if tempOut >= 17 {
		return 4.8 - (47-tempOut)*0.0867
	}
	return math.Max(1.2, 2.2-(17-tempOut)*0.02)
}

// COPFactor returns the coefficient of performance at the given outdoor
// temperature, scaled so the bin-hour weighted seasonal average matches
// the rated HSPF2.
func COPFactor(tempOut, hspf2 float64) float64 {
	if hspf2 <= 0 {
		hspf2 = 9
	}
	var weighted, hours float64
	for _, bin := range hspf2BinHours {
		weighted += baseCOP(bin[0]) * bin[1]
		hours += bin[1]
	}
	seasonal := weighted / hours
	target := (hspf2 * 1000) / BTUPerKWh
	return baseCOP(tempOut) * (target / seasonal)
}

// DefrostPenalty returns a multiplier ≥ 1.0 representing energy lost to
// defrost cycles. Worst in the 36–40°F band at high humidity, where frost
// forms fastest on the outdoor coil.
func DefrostPenalty(outdoorTemp, humidityPct float64) float64 {
	rh := humidityPct / 100.0
	tempMult := 1.0
	switch {
	case outdoorTemp >= 36 && outdoorTemp <= 40:
		tempMult = 1.0
	case outdoorTemp > 40 && outdoorTemp <= 45:
		tempMult = 1.0 - ((outdoorTemp-40)/5)*0.5
	case outdoorTemp >= 32 && outdoorTemp < 36:
		tempMult = 1.0 - ((36-outdoorTemp)/4)*0.1
	case outdoorTemp >= 20 && outdoorTemp < 32:
		tempMult = 0.9 - ((32-outdoorTemp)/12)*0.3
	case outdoorTemp < 20:
		tempMult = math.Max(0.2, 0.6-((20-outdoorTemp)/30)*0.4)
	case outdoorTemp > 45 && outdoorTemp <= 50:
		tempMult = 0.5 - ((outdoorTemp-45)/5)*0.4
	default: // > 50
		tempMult = 0.1
	}

	basePenalty := 0.15
	if outdoorTemp >= 36 && outdoorTemp <= 40 {
		if rh >= 0.90 {
			basePenalty = 0.20
		} else if rh >= 0.80 {
			basePenalty = 0.18
		}
	}
	penalty := basePenalty * rh * tempMult
	if rh >= 0.95 && outdoorTemp >= 32 && outdoorTemp <= 42 {
		penalty += (rh - 0.95) * 0.10 * tempMult
	}
	return math.Max(1.0, math.Min(2.0, 1+penalty))
}

// DesignHeatLoss estimates the building's heat loss in BTU/hr at a 70°F
// indoor-outdoor delta, rounded to the nearest 1000. insulationLevel and
// homeShape are dimensionless multipliers around 1.0 (documented in the
// dashboard's settings UI).
func DesignHeatLoss(squareFeet, insulationLevel, homeShape, ceilingHeight float64) float64 {
	if insulationLevel <= 0 {
		insulationLevel = 1.0
	}
	if homeShape <= 0 {
		homeShape = 1.0
	}
	if ceilingHeight <= 0 {
		ceilingHeight = 8
	}
	ceilingMult := 1 + (ceilingHeight-8)*0.1
	raw := squareFeet * 22.67 * insulationLevel * homeShape * ceilingMult
	return math.Round(raw/1000) * 1000
}
