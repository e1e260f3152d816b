// Package signal defines the Signal value produced by the rule set and
// delivered to subscribers.
package signal

import "time"

// Direction is the trading direction a Signal implies.
type Direction string

const (
	Buy   Direction = "BUY"
	Sell  Direction = "SELL"
	Alert Direction = "ALERT"
)

// Extra is an open, rule-specific diagnostic map. Values are numeric or
// string; never a nested struct.
type Extra map[string]interface{}

// Signal is one detected market event.
type Signal struct {
	Symbol     string    `json:"symbol"`
	SignalType string    `json:"signal_type"`
	Direction  Direction `json:"direction"`
	Strength   int       `json:"strength"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Timeframe  string    `json:"timeframe"`
	Price      float64   `json:"price"`
	Extra      Extra     `json:"extra"`
}

// New builds a Signal, clamping strength into [0,100]. A strength
// outside that range going in is a bug in the caller, not a reportable
// error here, so it's silently clamped.
func New(symbol, signalType string, direction Direction, strength float64, message, timeframe string, price float64, extra Extra) Signal {
	s := int(strength)
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	if extra == nil {
		extra = Extra{}
	}
	return Signal{
		Symbol:     symbol,
		SignalType: signalType,
		Direction:  direction,
		Strength:   s,
		Message:    message,
		Timestamp:  time.Now(),
		Timeframe:  timeframe,
		Price:      price,
		Extra:      extra,
	}
}

// Key is the cooldown-gate key for this signal: "{symbol}_{signal_type}".
func (s Signal) Key() string {
	return s.Symbol + "_" + s.SignalType
}
