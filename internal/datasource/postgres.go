// Package datasource exposes the "latest row per symbol" read surface
// over the candle and futures-metric tables. A single shared pgx pool
// is opened lazily and reopened after query failures, so a dropped
// connection costs one tick, not the process.
package datasource

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"market-signal-engine/internal/observation"
)

// Source reads the most recent candle and metric row per symbol from
// Postgres. It holds a single shared, lazily reopened connection pool
// plus an error counter for transient failures.
type Source struct {
	connString   string
	queryTimeout time.Duration

	mu   sync.Mutex
	pool *pgxpool.Pool

	errorCount atomic.Int64
}

// New creates a Source. The connection pool itself is opened lazily on
// first use.
func New(connString string, queryTimeout time.Duration) *Source {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Source{connString: connString, queryTimeout: queryTimeout}
}

// Close releases the underlying connection pool, if one is open.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// ErrorCount returns the number of transient data-source errors observed
// so far.
func (s *Source) ErrorCount() int64 {
	return s.errorCount.Load()
}

func (s *Source) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return s.pool, nil
	}

	pool, err := pgxpool.New(ctx, s.connString)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return pool, nil
}

// invalidatePool drops the cached pool so the next call reopens it.
func (s *Source) invalidatePool() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

const latestCandlesQuery = `
	SELECT DISTINCT ON (symbol)
		symbol, bucket_ts, open, high, low, close, volume,
		quote_volume, trade_count, taker_buy_volume, taker_buy_quote_volume
	FROM candles_1m
	WHERE symbol = ANY($1)
	ORDER BY symbol, bucket_ts DESC
`

// LatestCandles returns the most recent candle per symbol in universe.
// A connection or query failure is logged, counted, and yields an empty
// map rather than an error; the engine treats that as a transient miss
// and leaves its baselines untouched.
func (s *Source) LatestCandles(ctx context.Context, universe []string) observation.CandleMap {
	out := observation.CandleMap{}

	pool, err := s.ensurePool(ctx)
	if err != nil {
		s.errorCount.Add(1)
		log.Printf("datasource: failed to connect for candles: %v", err)
		return out
	}

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := pool.Query(qctx, latestCandlesQuery, universe)
	if err != nil {
		s.errorCount.Add(1)
		log.Printf("datasource: candle query failed: %v", err)
		s.invalidatePool()
		return out
	}
	defer rows.Close()

	for rows.Next() {
		c := &observation.Candle{}
		if err := rows.Scan(
			&c.Symbol, &c.BucketTS, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
			&c.QuoteVolume, &c.TradeCount, &c.TakerBuyVolume, &c.TakerBuyQuoteVolume,
		); err != nil {
			s.errorCount.Add(1)
			log.Printf("datasource: failed to scan candle row: %v", err)
			continue
		}
		out[c.Symbol] = c
	}
	if err := rows.Err(); err != nil {
		s.errorCount.Add(1)
		log.Printf("datasource: candle row iteration failed: %v", err)
		return observation.CandleMap{}
	}

	return out
}

const latestMetricsQuery = `
	SELECT DISTINCT ON (symbol)
		symbol, create_time, sum_open_interest, sum_open_interest_value,
		count_toptrader_long_short_ratio, sum_toptrader_long_short_ratio,
		count_long_short_ratio, sum_taker_long_short_vol_ratio
	FROM binance_futures_metrics_5m
	WHERE symbol = ANY($1)
	ORDER BY symbol, create_time DESC
`

// LatestMetrics returns the most recent futures metric row per symbol in
// universe, with the same transient-error-as-empty-map contract as
// LatestCandles.
func (s *Source) LatestMetrics(ctx context.Context, universe []string) observation.MetricMap {
	out := observation.MetricMap{}

	pool, err := s.ensurePool(ctx)
	if err != nil {
		s.errorCount.Add(1)
		log.Printf("datasource: failed to connect for metrics: %v", err)
		return out
	}

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := pool.Query(qctx, latestMetricsQuery, universe)
	if err != nil {
		s.errorCount.Add(1)
		log.Printf("datasource: metric query failed: %v", err)
		s.invalidatePool()
		return out
	}
	defer rows.Close()

	for rows.Next() {
		m := &observation.Metric{}
		if err := rows.Scan(
			&m.Symbol, &m.CreateTime, &m.SumOpenInterest, &m.SumOpenInterestValue,
			&m.CountToptraderLongShortRatio, &m.SumToptraderLongShortRatio,
			&m.CountLongShortRatio, &m.SumTakerLongShortVolRatio,
		); err != nil {
			s.errorCount.Add(1)
			log.Printf("datasource: failed to scan metric row: %v", err)
			continue
		}
		out[m.Symbol] = m
	}
	if err := rows.Err(); err != nil {
		s.errorCount.Add(1)
		log.Printf("datasource: metric row iteration failed: %v", err)
		return observation.MetricMap{}
	}

	return out
}
