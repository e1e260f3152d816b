package localize

import "testing"

func TestFormatSubstitutesArgs(t *testing.T) {
	f := New("en")
	got := f.Format("price_surge", map[string]interface{}{
		"symbol":    "BTCUSDT",
		"delta_pct": 3.5,
		"price":     65000.0,
	})
	want := "BTCUSDT surged 3.5%, now 65000"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestTranslateFallsBackToEnglish(t *testing.T) {
	f := New("zh")
	// "fr" isn't registered, so Translate should fall back to "en".
	got := f.Translate("fr", "volume_spike", map[string]interface{}{
		"symbol":       "ETHUSDT",
		"volume_ratio": 6.0,
	})
	want := "ETHUSDT volume spike, ratio 6"
	if got != want {
		t.Fatalf("Translate() = %q, want %q", got, want)
	}
}

func TestTranslateUnknownKeyReturnsKeyItself(t *testing.T) {
	f := New("en")
	got := f.Translate("en", "nonexistent_rule", nil)
	if got != "nonexistent_rule" {
		t.Fatalf("Translate(unknown key) = %q, want the raw key back", got)
	}
}

func TestNewDefaultsEmptyLangToZh(t *testing.T) {
	f := New("")
	got := f.Format("price_surge", map[string]interface{}{
		"symbol": "BTCUSDT", "delta_pct": 1, "price": 1,
	})
	if got == "price_surge" {
		t.Fatal("expected the zh dictionary to be used by default, got the raw key")
	}
}
