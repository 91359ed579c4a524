package calc

import "math"

// ComparisonInput compares heat pump operation against resistance aux heat
// over a heating period.
type ComparisonInput struct {
	CapacityBTU    float64
	HSPF2          float64
	SquareFeet     float64
	InsulationLvl  float64
	HomeShape      float64
	CeilingHeight  float64
	IndoorSetpoint float64
	OutdoorAvg     float64 // °F average outdoor temperature for the period
	HoursPerDay    float64 // runtime hours considered; defaults to 24
	RatePerKWh     float64
}

// ComparisonResult reports the daily cost of each heating strategy.
type ComparisonResult struct {
	BalancePoint   float64 // recomputed independently for this comparison
	HeatPumpKWhDay float64
	AuxKWhDay      float64
	HeatPumpUSDDay float64
	AuxUSDDay      float64
	SavingsUSDDay  float64
}

// Compare computes the daily energy cost of meeting the building load with
// the heat pump versus pure resistance heat at the given average outdoor
// temperature. The balance point is recomputed from the same inputs;
// comparison does not consume results from other calculators. When the
// outdoor average sits below the balance point, the deficit is assigned to
// aux in the heat pump column too.
func Compare(in ComparisonInput) ComparisonResult {
	if in.HoursPerDay <= 0 {
		in.HoursPerDay = 24
	}
	if in.IndoorSetpoint <= 0 {
		in.IndoorSetpoint = 70
	}

	bp := BalancePoint(BalancePointInput{
		CapacityBTU:    in.CapacityBTU,
		SquareFeet:     in.SquareFeet,
		InsulationLvl:  in.InsulationLvl,
		HomeShape:      in.HomeShape,
		CeilingHeight:  in.CeilingHeight,
		IndoorSetpoint: in.IndoorSetpoint,
	})

	var res ComparisonResult
	if bp.Defined {
		res.BalancePoint = bp.BalancePoint
	}
	if bp.DesignLossBTU <= 0 {
		return res
	}

	lossPerDeg := bp.DesignLossBTU / 70
	loadBTUHr := lossPerDeg * math.Max(0, in.IndoorSetpoint-in.OutdoorAvg)
	if loadBTUHr <= 0 {
		return res
	}

	available := in.CapacityBTU * CapacityFactor(in.OutdoorAvg, -15)
	delivered := math.Min(loadBTUHr, available)
	deficit := loadBTUHr - delivered

	cop := COPFactor(in.OutdoorAvg, in.HSPF2)
	res.HeatPumpKWhDay = delivered * in.HoursPerDay / (cop * BTUPerKWh)
	res.HeatPumpKWhDay += deficit * in.HoursPerDay / BTUPerKWh // aux covers the gap at COP 1
	res.AuxKWhDay = loadBTUHr * in.HoursPerDay / BTUPerKWh

	res.HeatPumpUSDDay = res.HeatPumpKWhDay * in.RatePerKWh
	res.AuxUSDDay = res.AuxKWhDay * in.RatePerKWh
	res.SavingsUSDDay = res.AuxUSDDay - res.HeatPumpUSDDay
	return res
}
