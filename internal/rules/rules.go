// Package rules implements the fixed, enumerated detection rule set:
// pure functions mapping (current, previous) observations to an
// optional Signal. Rules are a table, not an inheritance hierarchy;
// adding a rule means adding a row to AllRules.
package rules

import (
	"math"

	"market-signal-engine/internal/observation"
	"market-signal-engine/internal/signal"
)

// Params carries the caller-supplied thresholds for one invocation of
// the rule slate. WithOverrides replaces zero fields with the
// DefaultParams values; the rule functions use the fields as given.
type Params struct {
	PriceSurgePct         float64
	PriceDumpPct          float64
	VolumeSpikeMultiple   float64
	TakerBuyDominance     float64
	TakerSellDominance    float64
	OISurgePct            float64
	OIDumpPct             float64
	TopTraderExtremeLong  float64
	TopTraderExtremeShort float64
}

// DefaultParams returns the standard rule thresholds.
func DefaultParams() Params {
	return Params{
		PriceSurgePct:         2.0,
		PriceDumpPct:          2.0,
		VolumeSpikeMultiple:   5.0,
		TakerBuyDominance:     0.7,
		TakerSellDominance:    0.7,
		OISurgePct:            3.0,
		OIDumpPct:             3.0,
		TopTraderExtremeLong:  3.0,
		TopTraderExtremeShort: 0.5,
	}
}

// WithOverrides returns Params with any non-zero field of override
// substituted in for the matching DefaultParams field.
func WithOverrides(override Params) Params {
	p := DefaultParams()
	if override.PriceSurgePct != 0 {
		p.PriceSurgePct = override.PriceSurgePct
	}
	if override.PriceDumpPct != 0 {
		p.PriceDumpPct = override.PriceDumpPct
	}
	if override.VolumeSpikeMultiple != 0 {
		p.VolumeSpikeMultiple = override.VolumeSpikeMultiple
	}
	if override.TakerBuyDominance != 0 {
		p.TakerBuyDominance = override.TakerBuyDominance
	}
	if override.TakerSellDominance != 0 {
		p.TakerSellDominance = override.TakerSellDominance
	}
	if override.OISurgePct != 0 {
		p.OISurgePct = override.OISurgePct
	}
	if override.OIDumpPct != 0 {
		p.OIDumpPct = override.OIDumpPct
	}
	if override.TopTraderExtremeLong != 0 {
		p.TopTraderExtremeLong = override.TopTraderExtremeLong
	}
	if override.TopTraderExtremeShort != 0 {
		p.TopTraderExtremeShort = override.TopTraderExtremeShort
	}
	return p
}

// EvalFunc evaluates one rule against the current/previous candle and
// current/previous metric (metric pointers are nil when unavailable).
type EvalFunc func(cc *observation.Candle, pc *observation.Candle, cm *observation.Metric, pm *observation.Metric, p Params) *signal.Signal

// Rule is one row of the fixed rule table.
type Rule struct {
	ID             string
	RequiresMetric bool
	Evaluate       EvalFunc
}

// AllRules is the fixed rule slate in evaluation order: the five
// candle-only rules first, then the rules that need a metric row.
var AllRules = []Rule{
	{ID: "price_surge", Evaluate: evalPriceSurge},
	{ID: "price_dump", Evaluate: evalPriceDump},
	{ID: "volume_spike", Evaluate: evalVolumeSpike},
	{ID: "taker_buy_dominance", Evaluate: evalTakerBuyDominance},
	{ID: "taker_sell_dominance", Evaluate: evalTakerSellDominance},
	{ID: "oi_surge", RequiresMetric: true, Evaluate: evalOISurge},
	{ID: "oi_dump", RequiresMetric: true, Evaluate: evalOIDump},
	{ID: "top_trader_extreme_long", RequiresMetric: true, Evaluate: evalTopTraderExtremeLong},
	{ID: "top_trader_extreme_short", RequiresMetric: true, Evaluate: evalTopTraderExtremeShort},
	{ID: "taker_ratio_flip_long", RequiresMetric: true, Evaluate: evalTakerRatioFlipLong},
	{ID: "taker_ratio_flip_short", RequiresMetric: true, Evaluate: evalTakerRatioFlipShort},
}

func clampMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

func clampMax(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

func evalPriceSurge(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pc == nil || pc.Close == 0 {
		return nil
	}
	deltaPct := (cc.Close - pc.Close) / pc.Close * 100
	if deltaPct < p.PriceSurgePct {
		return nil
	}
	strength := clampMax(50+deltaPct*10, 90)
	s := signal.New(cc.Symbol, "price_surge", signal.Buy, strength, "", "5m", cc.Close, signal.Extra{
		"delta_pct": deltaPct,
	})
	return &s
}

func evalPriceDump(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pc == nil || pc.Close == 0 {
		return nil
	}
	deltaPct := (cc.Close - pc.Close) / pc.Close * 100
	if deltaPct > -p.PriceDumpPct {
		return nil
	}
	strength := clampMax(50+math.Abs(deltaPct)*10, 90)
	s := signal.New(cc.Symbol, "price_dump", signal.Sell, strength, "", "5m", cc.Close, signal.Extra{
		"delta_pct": deltaPct,
	})
	return &s
}

func evalVolumeSpike(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pc == nil || pc.QuoteVolume == 0 {
		return nil
	}
	ratio := cc.QuoteVolume / pc.QuoteVolume
	if ratio < p.VolumeSpikeMultiple {
		return nil
	}
	strength := clampMax(50+ratio*5, 85)
	s := signal.New(cc.Symbol, "volume_spike", signal.Alert, strength, "", "5m", cc.Close, signal.Extra{
		"volume_ratio": ratio,
	})
	return &s
}

func evalTakerBuyDominance(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if cc.QuoteVolume == 0 {
		return nil
	}
	ratio := cc.TakerBuyQuoteVolume / cc.QuoteVolume
	if ratio < p.TakerBuyDominance {
		return nil
	}
	strength := 60 + ratio*30
	s := signal.New(cc.Symbol, "taker_buy_dominance", signal.Buy, strength, "", "5m", cc.Close, signal.Extra{
		"taker_buy_ratio": ratio,
	})
	return &s
}

func evalTakerSellDominance(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if cc.QuoteVolume == 0 {
		return nil
	}
	sellRatio := 1 - cc.TakerBuyQuoteVolume/cc.QuoteVolume
	if sellRatio < p.TakerSellDominance {
		return nil
	}
	strength := 60 + sellRatio*30
	s := signal.New(cc.Symbol, "taker_sell_dominance", signal.Sell, strength, "", "5m", cc.Close, signal.Extra{
		"taker_sell_ratio": sellRatio,
	})
	return &s
}

func evalOISurge(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pm == nil || pm.SumOpenInterestValue == 0 {
		return nil
	}
	changePct := (cm.SumOpenInterestValue - pm.SumOpenInterestValue) / pm.SumOpenInterestValue * 100
	if changePct < p.OISurgePct {
		return nil
	}
	strength := clampMax(55+changePct*3, 80)
	s := signal.New(cc.Symbol, "oi_surge", signal.Alert, strength, "", "5m", 0, signal.Extra{
		"oi_change_pct": changePct,
	})
	return &s
}

func evalOIDump(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pm == nil || pm.SumOpenInterestValue == 0 {
		return nil
	}
	changePct := (cm.SumOpenInterestValue - pm.SumOpenInterestValue) / pm.SumOpenInterestValue * 100
	if changePct > -p.OIDumpPct {
		return nil
	}
	strength := clampMax(55+math.Abs(changePct)*3, 80)
	s := signal.New(cc.Symbol, "oi_dump", signal.Alert, strength, "", "5m", 0, signal.Extra{
		"oi_change_pct": changePct,
	})
	return &s
}

func evalTopTraderExtremeLong(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	ttr := cm.CountToptraderLongShortRatio
	if ttr < p.TopTraderExtremeLong {
		return nil
	}
	strength := clampMax(60+ttr*8, 85)
	s := signal.New(cc.Symbol, "top_trader_extreme_long", signal.Alert, strength, "", "5m", 0, signal.Extra{
		"top_trader_ratio": ttr,
	})
	return &s
}

func evalTopTraderExtremeShort(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	ttr := cm.CountToptraderLongShortRatio
	if ttr == 0 || ttr > p.TopTraderExtremeShort {
		return nil
	}
	strength := clampMax(60+(1/ttr)*5, 85)
	s := signal.New(cc.Symbol, "top_trader_extreme_short", signal.Alert, strength, "", "5m", 0, signal.Extra{
		"top_trader_ratio": ttr,
	})
	return &s
}

func evalTakerRatioFlipLong(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pm == nil {
		return nil
	}
	if !(pm.SumTakerLongShortVolRatio < 1.0 && cm.SumTakerLongShortVolRatio >= 1.2) {
		return nil
	}
	s := signal.New(cc.Symbol, "taker_ratio_flip_long", signal.Buy, 70, "", "5m", 0, signal.Extra{
		"prev_ratio": pm.SumTakerLongShortVolRatio,
		"curr_ratio": cm.SumTakerLongShortVolRatio,
	})
	return &s
}

func evalTakerRatioFlipShort(cc, pc *observation.Candle, cm, pm *observation.Metric, p Params) *signal.Signal {
	if pm == nil {
		return nil
	}
	if !(pm.SumTakerLongShortVolRatio > 1.0 && cm.SumTakerLongShortVolRatio <= 0.8) {
		return nil
	}
	s := signal.New(cc.Symbol, "taker_ratio_flip_short", signal.Sell, 70, "", "5m", 0, signal.Extra{
		"prev_ratio": pm.SumTakerLongShortVolRatio,
		"curr_ratio": cm.SumTakerLongShortVolRatio,
	})
	return &s
}
