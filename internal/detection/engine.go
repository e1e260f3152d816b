// Package detection implements the signal detection engine and its
// polling loop. One tick fetches the latest candle and metric rows,
// evaluates the fixed rule slate per symbol against the previously seen
// baseline, gates duplicate firings through the cooldown store,
// delivers surviving signals to subscribers, persists them to history,
// and advances the baseline.
package detection

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"market-signal-engine/internal/cooldown"
	"market-signal-engine/internal/history"
	"market-signal-engine/internal/localize"
	"market-signal-engine/internal/observation"
	"market-signal-engine/internal/rules"
	"market-signal-engine/internal/signal"
)

// SourceTag identifies this engine variant in history records.
const SourceTag = "postgres-engine"

// DataSource is the observation feed the Detection Engine polls each
// tick. datasource.Source is the production implementation; tests
// substitute a fake to avoid a live database dependency.
type DataSource interface {
	LatestCandles(ctx context.Context, universe []string) observation.CandleMap
	LatestMetrics(ctx context.Context, universe []string) observation.MetricMap
}

// Subscriber receives each surviving signal alongside its localized
// message text. Subscribers run synchronously on the tick goroutine and
// must be non-blocking or offload to their own workers.
type Subscriber func(s signal.Signal, message string)

// Stats is a point-in-time snapshot of the engine's lifetime counters.
type Stats struct {
	Checks    int64
	Signals   int64
	Errors    int64
	Symbols   int
	Cooldowns int
}

// Engine runs the detection tick. Construct with New; it is meant to
// be built once per process and reused. See singleton.go for the
// race-safe process-level holder.
type Engine struct {
	source    DataSource
	cooldowns *cooldown.Store
	history   *history.Store
	formatter *localize.Formatter

	symbols         []string
	cooldownSeconds float64
	params          rules.Params

	baselineMu      sync.RWMutex
	baselineCandles observation.CandleMap
	baselineMetrics observation.MetricMap

	cooldownMu  sync.Mutex
	cooldownMem map[string]float64

	subMu       sync.RWMutex
	subscribers []Subscriber

	statsMu sync.Mutex
	stats   Stats
}

// New constructs an Engine and seeds its in-memory cooldown map from
// the persistent store's LoadAll(), so gates that were cooling before a
// restart stay closed after it.
func New(source DataSource, cooldowns *cooldown.Store, hist *history.Store, formatter *localize.Formatter, symbols []string, cooldownSeconds float64, params rules.Params) (*Engine, error) {
	e := &Engine{
		source:          source,
		cooldowns:       cooldowns,
		history:         hist,
		formatter:       formatter,
		symbols:         append([]string{}, symbols...),
		cooldownSeconds: cooldownSeconds,
		params:          params,
		baselineCandles: observation.CandleMap{},
		baselineMetrics: observation.MetricMap{},
		cooldownMem:     map[string]float64{},
	}

	seed, err := cooldowns.LoadAll()
	if err != nil {
		log.Printf("detection: failed to seed cooldown map from store, starting empty: %v", err)
	} else {
		e.cooldownMem = seed
	}

	e.statsMu.Lock()
	e.stats.Symbols = len(e.symbols)
	e.statsMu.Unlock()

	return e, nil
}

// RegisterCallback subscribes fn. Subscribers are invoked in
// registration order on the tick goroutine.
func (e *Engine) RegisterCallback(fn Subscriber) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

func (e *Engine) snapshotSubscribers() []Subscriber {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	out := make([]Subscriber, len(e.subscribers))
	copy(out, e.subscribers)
	return out
}

// Stats returns a snapshot of the engine's lifetime counters. Transient
// data-source errors are folded into Errors when the source exposes a
// counter.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	s := e.stats
	e.statsMu.Unlock()
	if src, ok := e.source.(interface{ ErrorCount() int64 }); ok {
		s.Errors += src.ErrorCount()
	}
	e.cooldownMu.Lock()
	s.Cooldowns = len(e.cooldownMem)
	e.cooldownMu.Unlock()
	return s
}

func (e *Engine) incChecks()  { e.statsMu.Lock(); e.stats.Checks++; e.statsMu.Unlock() }
func (e *Engine) incSignals() { e.statsMu.Lock(); e.stats.Signals++; e.statsMu.Unlock() }
func (e *Engine) incErrors()  { e.statsMu.Lock(); e.stats.Errors++; e.statsMu.Unlock() }

// cooldownEligible reports whether key is eligible to fire: strictly
// more than cooldownSeconds have elapsed since its last emission. The
// strict inequality means a key that fired exactly cooldownSeconds ago
// is still cooling.
func (e *Engine) cooldownEligible(key string, now float64) bool {
	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()
	last := e.cooldownMem[key]
	return now-last > e.cooldownSeconds
}

func (e *Engine) markFired(key string, now float64) {
	e.cooldownMu.Lock()
	e.cooldownMem[key] = now
	e.cooldownMu.Unlock()

	if err := e.cooldowns.Set(key, now); err != nil {
		log.Printf("detection: failed to persist cooldown for %s (will re-check next tick): %v", key, err)
	}
}

// Tick performs one polling cycle and returns the signals emitted
// during it.
func (e *Engine) Tick(ctx context.Context) []signal.Signal {
	e.incChecks()

	currentCandles := e.source.LatestCandles(ctx, e.symbols)
	currentMetrics := e.source.LatestMetrics(ctx, e.symbols)

	var emitted []signal.Signal
	now := float64(time.Now().Unix())

	for _, sym := range e.symbols {
		cc := currentCandles[sym]
		if cc == nil {
			// No current candle: skip the symbol entirely, including
			// baseline advancement.
			continue
		}

		e.baselineMu.RLock()
		pc := e.baselineCandles[sym]
		e.baselineMu.RUnlock()

		cm := currentMetrics[sym]

		e.baselineMu.RLock()
		pm := e.baselineMetrics[sym]
		e.baselineMu.RUnlock()

		slate := rules.AllRules
		for _, rule := range slate {
			if rule.RequiresMetric && cm == nil {
				continue
			}

			sig := e.evaluateRule(rule, cc, pc, cm, pm)
			if sig == nil {
				continue
			}

			key := sig.Key()
			if !e.cooldownEligible(key, now) {
				continue
			}

			args := map[string]interface{}{
				"symbol": sig.Symbol,
				"price":  sig.Price,
			}
			for k, v := range sig.Extra {
				args[k] = v
			}
			message := e.formatter.Format(sig.SignalType, args)
			sig.Message = message

			e.deliver(*sig, message)
			e.persist(*sig)

			e.markFired(key, now)
			e.incSignals()
			emitted = append(emitted, *sig)
		}

		e.baselineMu.Lock()
		e.baselineCandles[sym] = cc
		if cm != nil {
			e.baselineMetrics[sym] = cm
		}
		e.baselineMu.Unlock()
	}

	return emitted
}

// evaluateRule invokes one rule, isolating any panic as a rule
// evaluation error: logged, counted, and treated as "no signal" so the
// other rules for the symbol still proceed.
func (e *Engine) evaluateRule(rule rules.Rule, cc, pc *observation.Candle, cm, pm *observation.Metric) (result *signal.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("detection: rule %s panicked for %s: %v", rule.ID, cc.Symbol, r)
			e.incErrors()
			result = nil
		}
	}()
	return rule.Evaluate(cc, pc, cm, pm, e.params)
}

func (e *Engine) deliver(sig signal.Signal, message string) {
	for _, sub := range e.snapshotSubscribers() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("detection: subscriber panicked delivering %s/%s: %v", sig.Symbol, sig.SignalType, r)
				}
			}()
			sub(sig, message)
		}()
	}
}

func (e *Engine) persist(sig signal.Signal) {
	id := e.history.Save(history.Record{
		Timestamp:  sig.Timestamp,
		Symbol:     sig.Symbol,
		SignalType: sig.SignalType,
		Direction:  string(sig.Direction),
		Strength:   sig.Strength,
		Message:    sig.Message,
		Timeframe:  sig.Timeframe,
		Price:      sig.Price,
		Source:     SourceTag,
		Extra:      extraToString(sig.Extra),
	})
	if id < 0 {
		log.Printf("detection: history write failed for %s/%s (delivery already completed)", sig.Symbol, sig.SignalType)
	}
}

func extraToString(extra signal.Extra) string {
	if len(extra) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, extra[k])
	}
	b.WriteString("}")
	return b.String()
}
