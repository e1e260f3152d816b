package rules

import (
	"testing"

	"market-signal-engine/internal/observation"
	"market-signal-engine/internal/signal"
)

func TestWithOverridesSubstitutesOnlyNonZero(t *testing.T) {
	p := WithOverrides(Params{PriceSurgePct: 5.0})
	def := DefaultParams()

	if p.PriceSurgePct != 5.0 {
		t.Fatalf("PriceSurgePct = %v, want 5.0", p.PriceSurgePct)
	}
	if p.PriceDumpPct != def.PriceDumpPct {
		t.Fatalf("PriceDumpPct = %v, want unchanged default %v", p.PriceDumpPct, def.PriceDumpPct)
	}
}

func TestEvalPriceSurge(t *testing.T) {
	p := DefaultParams()
	pc := &observation.Candle{Symbol: "BTCUSDT", Close: 100}

	cases := []struct {
		name    string
		current float64
		wantNil bool
	}{
		{"below threshold", 101.0, true},
		{"at threshold", 102.0, false},
		{"well above threshold", 110.0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cc := &observation.Candle{Symbol: "BTCUSDT", Close: tc.current}
			sig := evalPriceSurge(cc, pc, nil, nil, p)
			if tc.wantNil && sig != nil {
				t.Fatalf("expected nil, got %+v", sig)
			}
			if !tc.wantNil && sig == nil {
				t.Fatal("expected a signal, got nil")
			}
		})
	}
}

func TestEvalPriceSurgeNoBaseline(t *testing.T) {
	cc := &observation.Candle{Symbol: "BTCUSDT", Close: 100}
	if sig := evalPriceSurge(cc, nil, nil, nil, DefaultParams()); sig != nil {
		t.Fatalf("expected nil with no baseline, got %+v", sig)
	}
}

func TestEvalPriceSurgeStrengthClampedTo90(t *testing.T) {
	pc := &observation.Candle{Symbol: "BTCUSDT", Close: 100}
	cc := &observation.Candle{Symbol: "BTCUSDT", Close: 1000}
	sig := evalPriceSurge(cc, pc, nil, nil, DefaultParams())
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Strength > 90 {
		t.Fatalf("Strength = %d, want <= 90", sig.Strength)
	}
	if sig.Direction != signal.Buy {
		t.Fatalf("Direction = %v, want Buy", sig.Direction)
	}
}

func TestEvalPriceDumpSymmetry(t *testing.T) {
	pc := &observation.Candle{Symbol: "ETHUSDT", Close: 100}
	cc := &observation.Candle{Symbol: "ETHUSDT", Close: 90}
	sig := evalPriceDump(cc, pc, nil, nil, DefaultParams())
	if sig == nil {
		t.Fatal("expected a signal for a 10% drop")
	}
	if sig.Direction != signal.Sell {
		t.Fatalf("Direction = %v, want Sell", sig.Direction)
	}
}

func TestEvalVolumeSpikeRequiresBaselineVolume(t *testing.T) {
	cc := &observation.Candle{Symbol: "SOLUSDT", QuoteVolume: 1000}
	if sig := evalVolumeSpike(cc, nil, nil, nil, DefaultParams()); sig != nil {
		t.Fatalf("expected nil with no baseline volume, got %+v", sig)
	}

	pc := &observation.Candle{Symbol: "SOLUSDT", QuoteVolume: 100}
	sig := evalVolumeSpike(cc, pc, nil, nil, DefaultParams())
	if sig == nil {
		t.Fatal("expected a signal for a 10x volume spike")
	}
}

func TestEvalTakerBuyDominanceGuardsZeroVolume(t *testing.T) {
	cc := &observation.Candle{Symbol: "BNBUSDT", QuoteVolume: 0}
	if sig := evalTakerBuyDominance(cc, nil, nil, nil, DefaultParams()); sig != nil {
		t.Fatalf("expected nil with zero quote volume, got %+v", sig)
	}
}

func TestEvalTopTraderExtremeShortGuardsZeroRatio(t *testing.T) {
	cm := &observation.Metric{CountToptraderLongShortRatio: 0}
	cc := &observation.Candle{Symbol: "BTCUSDT"}
	if sig := evalTopTraderExtremeShort(cc, nil, cm, nil, DefaultParams()); sig != nil {
		t.Fatalf("expected nil with zero ratio (would divide by zero), got %+v", sig)
	}
}

func TestEvalTakerRatioFlipLongRequiresCrossingBothSides(t *testing.T) {
	p := DefaultParams()
	cc := &observation.Candle{Symbol: "BTCUSDT"}

	// previous ratio not below 1.0: no flip
	pm := &observation.Metric{SumTakerLongShortVolRatio: 1.0}
	cm := &observation.Metric{SumTakerLongShortVolRatio: 1.3}
	if sig := evalTakerRatioFlipLong(cc, nil, cm, pm, p); sig != nil {
		t.Fatalf("expected nil, previous ratio was not below 1.0: %+v", sig)
	}

	// previous below 1.0 but current doesn't clear 1.2: no flip
	pm = &observation.Metric{SumTakerLongShortVolRatio: 0.9}
	cm = &observation.Metric{SumTakerLongShortVolRatio: 1.1}
	if sig := evalTakerRatioFlipLong(cc, nil, cm, pm, p); sig != nil {
		t.Fatalf("expected nil, current ratio did not clear 1.2: %+v", sig)
	}

	// both sides cross: signal fires
	pm = &observation.Metric{SumTakerLongShortVolRatio: 0.9}
	cm = &observation.Metric{SumTakerLongShortVolRatio: 1.3}
	sig := evalTakerRatioFlipLong(cc, nil, cm, pm, p)
	if sig == nil {
		t.Fatal("expected a flip signal")
	}
	if sig.Strength != 70 {
		t.Fatalf("Strength = %d, want fixed 70", sig.Strength)
	}
}

func TestAllRulesOrderAndMetricRequirement(t *testing.T) {
	wantOrder := []string{
		"price_surge", "price_dump", "volume_spike",
		"taker_buy_dominance", "taker_sell_dominance",
		"oi_surge", "oi_dump",
		"top_trader_extreme_long", "top_trader_extreme_short",
		"taker_ratio_flip_long", "taker_ratio_flip_short",
	}
	if len(AllRules) != len(wantOrder) {
		t.Fatalf("len(AllRules) = %d, want %d", len(AllRules), len(wantOrder))
	}
	for i, id := range wantOrder {
		if AllRules[i].ID != id {
			t.Fatalf("AllRules[%d].ID = %q, want %q", i, AllRules[i].ID, id)
		}
	}
	// first five are candle-only, the rest require a metric row
	for i, rule := range AllRules {
		wantRequires := i >= 5
		if rule.RequiresMetric != wantRequires {
			t.Fatalf("AllRules[%d] (%s) RequiresMetric = %v, want %v", i, rule.ID, rule.RequiresMetric, wantRequires)
		}
	}
}
