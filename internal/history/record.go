package history

import "time"

// Record is one append-only history row: every Signal field plus a
// source tag identifying the producing engine variant.
type Record struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	SignalType string    `json:"signal_type"`
	Direction  string    `json:"direction"`
	Strength   int       `json:"strength"`
	Message    string    `json:"message"`
	Timeframe  string    `json:"timeframe"`
	Price      float64   `json:"price"`
	Source     string    `json:"source"`
	Extra      string    `json:"extra"`
}

// Stats is the aggregate result returned by Store.GetStats.
type Stats struct {
	Total       int            `json:"total"`
	Days        int            `json:"days"`
	ByDirection map[string]int `json:"by_direction"`
	BySymbol    []SymbolCount  `json:"by_symbol"`
	BySource    map[string]int `json:"by_source"`
}

// SymbolCount is one row of the top-10-by-symbol breakdown.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}
