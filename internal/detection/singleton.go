package detection

import (
	"sync"

	"market-signal-engine/internal/cooldown"
	"market-signal-engine/internal/history"
	"market-signal-engine/internal/localize"
	"market-signal-engine/internal/rules"
)

// The engine is constructed once per process and reused; construction
// is serialized under instanceMu so concurrent first-access from
// multiple goroutines (e.g. the scheduler goroutine and an admin HTTP
// handler) never builds two engines.
var (
	instanceMu sync.Mutex
	instance   *Engine
)

// Params bundles what's needed to construct the singleton Engine.
type Params struct {
	Source          DataSource
	Cooldowns       *cooldown.Store
	History         *history.Store
	Formatter       *localize.Formatter
	Symbols         []string
	CooldownSeconds float64
	RuleParams      rules.Params
}

// Instance returns the process-wide Engine, constructing it on first
// call with p. Subsequent calls ignore p and return the existing
// instance.
func Instance(p Params) (*Engine, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance, nil
	}

	e, err := New(p.Source, p.Cooldowns, p.History, p.Formatter, p.Symbols, p.CooldownSeconds, p.RuleParams)
	if err != nil {
		return nil, err
	}
	instance = e
	return instance, nil
}
