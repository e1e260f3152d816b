package history

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(symbol string, ts time.Time) Record {
	return Record{
		Timestamp:  ts,
		Symbol:     symbol,
		SignalType: "price_surge",
		Direction:  "BUY",
		Strength:   80,
		Message:    "test signal",
		Timeframe:  "5m",
		Price:      100.5,
		Source:     "test",
		Extra:      "{}",
	}
}

func TestSaveAssignsIncreasingIDs(t *testing.T) {
	s := newTestStore(t)
	id1 := s.Save(sampleRecord("BTCUSDT", time.Now()))
	id2 := s.Save(sampleRecord("BTCUSDT", time.Now()))
	if id1 < 0 || id2 < 0 {
		t.Fatalf("Save() returned a negative id: %d, %d", id1, id2)
	}
	if id2 <= id1 {
		t.Fatalf("expected id2 (%d) > id1 (%d)", id2, id1)
	}
}

func TestGetRecentFiltersBySymbolAndDirection(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.Save(sampleRecord("BTCUSDT", now))
	sell := sampleRecord("ETHUSDT", now)
	sell.Direction = "SELL"
	s.Save(sell)

	records, err := s.GetRecent(10, "BTCUSDT", "")
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(records) != 1 || records[0].Symbol != "BTCUSDT" {
		t.Fatalf("GetRecent(symbol filter) = %+v, want one BTCUSDT record", records)
	}

	records, err = s.GetRecent(10, "", "SELL")
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(records) != 1 || records[0].Direction != "SELL" {
		t.Fatalf("GetRecent(direction filter) = %+v, want one SELL record", records)
	}
}

func TestGetRecentOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	s.Save(sampleRecord("BTCUSDT", older))
	s.Save(sampleRecord("BTCUSDT", newer))

	records, err := s.GetRecent(10, "", "")
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !records[0].Timestamp.After(records[1].Timestamp) {
		t.Fatalf("expected newest-first ordering, got %v then %v", records[0].Timestamp, records[1].Timestamp)
	}
}

func TestGetBySymbolExcludesOlderThanWindow(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleRecord("BTCUSDT", time.Now().Add(-48*time.Hour)))
	s.Save(sampleRecord("BTCUSDT", time.Now()))

	records, err := s.GetBySymbol("BTCUSDT", 1, 10)
	if err != nil {
		t.Fatalf("GetBySymbol() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records within a 1-day window, want 1", len(records))
	}
}

func TestGetStatsAggregatesByDirectionAndSource(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleRecord("BTCUSDT", time.Now()))
	sell := sampleRecord("BTCUSDT", time.Now())
	sell.Direction = "SELL"
	s.Save(sell)

	stats, err := s.GetStats(7)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("Total = %d, want 2", stats.Total)
	}
	if stats.ByDirection["BUY"] != 1 || stats.ByDirection["SELL"] != 1 {
		t.Fatalf("ByDirection = %v, want one BUY and one SELL", stats.ByDirection)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleRecord("BTCUSDT", time.Now().Add(-60*24*time.Hour)))

	n1, err := s.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if n1 != 1 {
		t.Fatalf("first Cleanup() removed %d rows, want 1", n1)
	}

	n2, err := s.Cleanup(30)
	if err != nil {
		t.Fatalf("second Cleanup() error = %v", err)
	}
	if n2 != 0 {
		t.Fatalf("second Cleanup() removed %d rows, want 0", n2)
	}
}

func TestFormatHistoryTextEmpty(t *testing.T) {
	out := FormatHistoryText(nil, "Recent Signals")
	if out != "Recent Signals\n\nno records" {
		t.Fatalf("FormatHistoryText(empty) = %q", out)
	}
}

func TestFormatHistoryTextTruncatesAtFifteen(t *testing.T) {
	records := make([]Record, 20)
	for i := range records {
		records[i] = sampleRecord("BTCUSDT", time.Now())
	}
	out := FormatHistoryText(records, "")
	if !strings.Contains(out, "... 5 more") {
		t.Fatalf("expected a truncation trailer for the remaining 5 records, got: %s", out)
	}
}
