// Package observation defines the typed rows read from the time-series
// database: the most recent 1-minute candle and the most recent 5-minute
// futures-metric row for a symbol.
package observation

import "time"

// Candle is one time-bucketed OHLCV observation for a symbol.
type Candle struct {
	Symbol               string    `db:"symbol"`
	BucketTS             time.Time `db:"bucket_ts"`
	Open                 float64   `db:"open"`
	High                 float64   `db:"high"`
	Low                  float64   `db:"low"`
	Close                float64   `db:"close"`
	Volume               float64   `db:"volume"`
	QuoteVolume          float64   `db:"quote_volume"`
	TradeCount           int64     `db:"trade_count"`
	TakerBuyVolume       float64   `db:"taker_buy_volume"`
	TakerBuyQuoteVolume  float64   `db:"taker_buy_quote_volume"`
}

// Metric is one 5-minute bucket of futures derived metrics for a symbol.
type Metric struct {
	Symbol                        string    `db:"symbol"`
	CreateTime                    time.Time `db:"create_time"`
	SumOpenInterest               float64   `db:"sum_open_interest"`
	SumOpenInterestValue          float64   `db:"sum_open_interest_value"`
	CountToptraderLongShortRatio  float64   `db:"count_toptrader_long_short_ratio"`
	SumToptraderLongShortRatio    float64   `db:"sum_toptrader_long_short_ratio"`
	CountLongShortRatio           float64   `db:"count_long_short_ratio"`
	SumTakerLongShortVolRatio     float64   `db:"sum_taker_long_short_vol_ratio"`
}

// CandleMap is a symbol -> most recent candle mapping, as returned by the
// Data Source for one tick. Symbols absent from the map have no current
// candle observation.
type CandleMap map[string]*Candle

// MetricMap is a symbol -> most recent metric mapping, as returned by the
// Data Source for one tick. Symbols absent from the map have no current
// metric observation.
type MetricMap map[string]*Metric
