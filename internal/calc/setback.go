package calc

import "math"

// SetbackInput describes a nightly thermostat setback scenario.
type SetbackInput struct {
	DesignLossBTU  float64 // BTU/hr at 70°F delta
	IndoorSetpoint float64 // °F occupied setpoint
	SetbackDegrees float64 // °F reduction during setback
	SetbackHours   float64 // hours per day at the setback temperature
	OutdoorAvg     float64 // °F average outdoor temperature
	HSPF2          float64
	RatePerKWh     float64 // $/kWh
}

// SetbackResult estimates the value of a thermostat setback.
type SetbackResult struct {
	DailyKWhSaved   float64
	DailySavingsUSD float64
	MonthlyUSD      float64
	SavingsPct      float64
}

// SetbackSavings estimates energy saved by a nightly setback. Heat loss is
// proportional to the indoor-outdoor delta, so each setback degree-hour
// avoids lossPerDeg BTU; recovery cost claws back roughly a quarter of the
// gross saving, which matches the field rule of thumb for heat pumps
// (deep setbacks can trigger aux heat on recovery, eroding the win).
func SetbackSavings(in SetbackInput) SetbackResult {
	var res SetbackResult
	if in.DesignLossBTU <= 0 || in.SetbackDegrees <= 0 || in.SetbackHours <= 0 {
		return res
	}
	if in.IndoorSetpoint <= 0 {
		in.IndoorSetpoint = 70
	}

	lossPerDeg := in.DesignLossBTU / 70
	grossBTU := lossPerDeg * in.SetbackDegrees * in.SetbackHours
	netBTU := grossBTU * 0.75 // recovery penalty

	cop := COPFactor(in.OutdoorAvg, in.HSPF2)
	res.DailyKWhSaved = netBTU / (cop * BTUPerKWh)
	res.DailySavingsUSD = res.DailyKWhSaved * in.RatePerKWh
	res.MonthlyUSD = res.DailySavingsUSD * 30

	// Percent of the day's total heating load avoided.
	dayBTU := lossPerDeg * math.Max(1, in.IndoorSetpoint-in.OutdoorAvg) * 24
	if dayBTU > 0 {
		res.SavingsPct = netBTU / dayBTU * 100
	}
	return res
}
