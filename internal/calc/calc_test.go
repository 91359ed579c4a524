package calc

import (
	"math"
	"testing"
)

func TestCapacityFactor(t *testing.T) {
	tests := []struct {
		name    string
		tempOut float64
		want    float64
	}{
		{name: "mild", tempOut: 50, want: 1.0},
		{name: "rating point", tempOut: 47, want: 1.0},
		{name: "midband", tempOut: 32, want: 1 - 15*0.012},
		{name: "low rating point", tempOut: 17, want: 0.64},
		{name: "below 17", tempOut: 7, want: 0.54},
		{name: "at cutoff", tempOut: -15, want: 0},
		{name: "below cutoff", tempOut: -20, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapacityFactor(tt.tempOut, -15)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CapacityFactor(%v) = %v, want %v", tt.tempOut, got, tt.want)
			}
		})
	}
}

func TestCOPFactorSeasonalScaling(t *testing.T) {
	// Bin-hour weighted average must reproduce the rated HSPF2.
	hspf2 := 9.0
	var weighted, hours float64
	for _, bin := range hspf2BinHours {
		weighted += COPFactor(bin[0], hspf2) * bin[1]
		hours += bin[1]
	}
	seasonal := weighted / hours
	target := hspf2 * 1000 / BTUPerKWh
	if math.Abs(seasonal-target) > 0.01 {
		t.Errorf("seasonal COP = %v, want %v", seasonal, target)
	}
}

func TestCOPFactorMonotonic(t *testing.T) {
	prev := -1.0
	for temp := -20.0; temp <= 60; temp += 5 {
		cop := COPFactor(temp, 9)
		if cop < prev {
			t.Errorf("COP decreased at %v°F: %v < %v", temp, cop, prev)
		}
		prev = cop
	}
}

func TestDefrostPenaltyBounds(t *testing.T) {
	for temp := -10.0; temp <= 60; temp += 2 {
		for rh := 0.0; rh <= 100; rh += 10 {
			p := DefrostPenalty(temp, rh)
			if p < 1.0 || p > 2.0 {
				t.Fatalf("DefrostPenalty(%v, %v) = %v, out of [1,2]", temp, rh, p)
			}
		}
	}
}

func TestDefrostPenaltyWorstBand(t *testing.T) {
	// 36-40°F at saturation is the worst case.
	worst := DefrostPenalty(38, 95)
	mild := DefrostPenalty(55, 95)
	if worst <= mild {
		t.Errorf("expected 38°F penalty (%v) > 55°F penalty (%v)", worst, mild)
	}
}

func TestDesignHeatLoss(t *testing.T) {
	got := DesignHeatLoss(2000, 1.0, 1.0, 8)
	want := math.Round(2000*22.67/1000) * 1000
	if got != want {
		t.Errorf("DesignHeatLoss = %v, want %v", got, want)
	}

	// Zero-value multipliers degrade to 1.0 / 8ft.
	if DesignHeatLoss(2000, 0, 0, 0) != got {
		t.Error("defaulted multipliers should match explicit 1.0/1.0/8")
	}
}

func TestBalancePoint(t *testing.T) {
	res := BalancePoint(BalancePointInput{
		CapacityBTU: 36000,
		SquareFeet:  2000,
	})
	if !res.Defined {
		t.Fatal("expected a defined balance point for 3 tons / 2000 sqft")
	}
	if res.BalancePoint < 10 || res.BalancePoint > 45 {
		t.Errorf("balance point %v°F outside plausible range", res.BalancePoint)
	}
	if res.DesignLossBTU <= 0 {
		t.Error("design loss not populated")
	}
}

func TestBalancePointOversized(t *testing.T) {
	// A hugely oversized system never crosses in the scanned range.
	res := BalancePoint(BalancePointInput{
		CapacityBTU: 200000,
		SquareFeet:  800,
	})
	if res.Defined {
		t.Errorf("expected undefined balance point, got %v", res.BalancePoint)
	}
}

func TestBalancePointZeroInputs(t *testing.T) {
	res := BalancePoint(BalancePointInput{})
	if res.Defined {
		t.Error("zero inputs must not yield a balance point")
	}
}

func TestRecommendedLockout(t *testing.T) {
	tests := []struct {
		name        string
		bp          float64
		want        float64
		wantClamped bool
	}{
		{name: "typical", bp: 32, want: 25, wantClamped: false},
		{name: "high", bp: 40, want: 33, wantClamped: false},
		{name: "clamped", bp: 20, want: 15, wantClamped: true},
		{name: "very low", bp: 10, want: 15, wantClamped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := RecommendedLockout(tt.bp)
			if got != tt.want || clamped != tt.wantClamped {
				t.Errorf("RecommendedLockout(%v) = %v, %v; want %v, %v",
					tt.bp, got, clamped, tt.want, tt.wantClamped)
			}
		})
	}
}

func TestSetbackSavings(t *testing.T) {
	res := SetbackSavings(SetbackInput{
		DesignLossBTU:  45000,
		IndoorSetpoint: 70,
		SetbackDegrees: 6,
		SetbackHours:   8,
		OutdoorAvg:     35,
		HSPF2:          9,
		RatePerKWh:     0.15,
	})
	if res.DailyKWhSaved <= 0 {
		t.Error("expected positive savings")
	}
	if res.SavingsPct <= 0 || res.SavingsPct >= 100 {
		t.Errorf("SavingsPct = %v, outside (0,100)", res.SavingsPct)
	}
	if res.MonthlyUSD != res.DailySavingsUSD*30 {
		t.Error("monthly must be 30x daily")
	}
}

func TestSetbackSavingsNoInputs(t *testing.T) {
	res := SetbackSavings(SetbackInput{})
	if res.DailyKWhSaved != 0 {
		t.Error("zero inputs must yield zero savings")
	}
}

func TestPerformanceDeviation(t *testing.T) {
	in := PerformanceInput{
		CapacityBTU: 36000,
		HSPF2:       9,
		OutdoorTemp: 35,
		IndoorTemp:  70,
		HumidityPct: 60,
	}
	base := Performance(in)
	if base.ExpectedWatts <= 0 {
		t.Fatal("expected a positive expected draw")
	}
	if base.DeviationPct != 0 {
		t.Error("deviation must be 0 without a measured draw")
	}

	in.PowerWatts = base.ExpectedWatts * 1.2
	over := Performance(in)
	if math.Abs(over.DeviationPct-20) > 0.5 {
		t.Errorf("DeviationPct = %v, want ~20", over.DeviationPct)
	}
}

func TestChargingTargets(t *testing.T) {
	tests := []struct {
		name     string
		in       ChargingInput
		feasible bool
	}{
		{name: "cooling warm", in: ChargingInput{Mode: "cooling", OutdoorTemp: 85, IndoorTemp: 75}, feasible: true},
		{name: "cooling cold", in: ChargingInput{Mode: "cooling", OutdoorTemp: 50}, feasible: false},
		{name: "heating mild", in: ChargingInput{Mode: "heating", OutdoorTemp: 40}, feasible: true},
		{name: "heating frigid", in: ChargingInput{Mode: "heating", OutdoorTemp: 5}, feasible: false},
		{name: "unknown mode", in: ChargingInput{Mode: "auto"}, feasible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ChargingTargets(tt.in)
			if res.Feasible != tt.feasible {
				t.Errorf("Feasible = %v, want %v (%s)", res.Feasible, tt.feasible, res.Reason)
			}
			if !res.Feasible && res.Reason == "" {
				t.Error("infeasible result must carry a reason")
			}
		})
	}
}

func TestCompareRecomputesBalancePoint(t *testing.T) {
	res := Compare(ComparisonInput{
		CapacityBTU: 36000,
		HSPF2:       9,
		SquareFeet:  2000,
		OutdoorAvg:  35,
		RatePerKWh:  0.15,
	})
	if res.BalancePoint == 0 {
		t.Error("comparison must carry its own balance point")
	}
	if res.SavingsUSDDay <= 0 {
		t.Errorf("heat pump should beat resistance heat at 35°F, savings = %v", res.SavingsUSDDay)
	}
	if res.AuxKWhDay <= res.HeatPumpKWhDay {
		t.Error("resistance heat must use more energy than the heat pump")
	}
}
