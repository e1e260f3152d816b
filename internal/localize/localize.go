// Package localize renders signal message text from a rule id and
// named substitutions, for a configured language tag. It stands in for
// a front-end's translation layer; the engine only depends on the key
// and substitution contract, not on any particular wording.
package localize

import (
	"fmt"
	"strings"
)

// Formatter renders a message key into localized text with named
// substitutions. Keys are part of the stable rule contract;
// translations themselves are not.
type Formatter struct {
	defaultLang string
	messages    map[string]map[string]string
}

// New builds a Formatter defaulting to defaultLang when Translate is
// called without an explicit language override.
func New(defaultLang string) *Formatter {
	if defaultLang == "" {
		defaultLang = "zh"
	}
	return &Formatter{
		defaultLang: defaultLang,
		messages:    builtinMessages(),
	}
}

// Translate renders the message for key in lang. An empty lang means the
// formatter's default language. If lang has no entry for key (or is not
// registered at all), the "en" entry is used; if that is missing too,
// the raw key is returned.
func (f *Formatter) Translate(lang, key string, args map[string]interface{}) string {
	if lang == "" {
		lang = f.defaultLang
	}

	text, ok := f.lookup(lang, key)
	if !ok {
		return key
	}

	return substitute(text, args)
}

// Format renders a message for the formatter's configured default
// language. This is the entry point the detection engine calls
// immediately before delivery.
func (f *Formatter) Format(key string, args map[string]interface{}) string {
	return f.Translate(f.defaultLang, key, args)
}

func (f *Formatter) lookup(lang, key string) (string, bool) {
	if dict, ok := f.messages[lang]; ok {
		if text, ok := dict[key]; ok {
			return text, true
		}
	}
	if dict, ok := f.messages["en"]; ok {
		if text, ok := dict[key]; ok {
			return text, true
		}
	}
	return "", false
}

func substitute(text string, args map[string]interface{}) string {
	if len(args) == 0 {
		return text
	}
	out := text
	for k, v := range args {
		out = strings.ReplaceAll(out, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return out
}

// builtinMessages is the embedded zh/en dictionary. Rule ids are the
// message keys.
func builtinMessages() map[string]map[string]string {
	return map[string]map[string]string{
		"zh": {
			"price_surge":              "{symbol} 价格急涨 {delta_pct}%，当前 {price}",
			"price_dump":               "{symbol} 价格急跌 {delta_pct}%，当前 {price}",
			"volume_spike":             "{symbol} 成交量异动，量比 {volume_ratio}",
			"taker_buy_dominance":      "{symbol} 主动买盘占优，占比 {taker_buy_ratio}",
			"taker_sell_dominance":     "{symbol} 主动卖盘占优，占比 {taker_sell_ratio}",
			"oi_surge":                 "{symbol} 持仓量激增 {oi_change_pct}%",
			"oi_dump":                  "{symbol} 持仓量骤降 {oi_change_pct}%",
			"top_trader_extreme_long":  "{symbol} 大户多空比极端偏多 {top_trader_ratio}",
			"top_trader_extreme_short": "{symbol} 大户多空比极端偏空 {top_trader_ratio}",
			"taker_ratio_flip_long":    "{symbol} 主动买卖比由空转多 {prev_ratio}->{curr_ratio}",
			"taker_ratio_flip_short":   "{symbol} 主动买卖比由多转空 {prev_ratio}->{curr_ratio}",
		},
		"en": {
			"price_surge":              "{symbol} surged {delta_pct}%, now {price}",
			"price_dump":               "{symbol} dumped {delta_pct}%, now {price}",
			"volume_spike":             "{symbol} volume spike, ratio {volume_ratio}",
			"taker_buy_dominance":      "{symbol} taker buy dominance, ratio {taker_buy_ratio}",
			"taker_sell_dominance":     "{symbol} taker sell dominance, ratio {taker_sell_ratio}",
			"oi_surge":                 "{symbol} open interest surged {oi_change_pct}%",
			"oi_dump":                  "{symbol} open interest dumped {oi_change_pct}%",
			"top_trader_extreme_long":  "{symbol} top trader long/short ratio extreme long {top_trader_ratio}",
			"top_trader_extreme_short": "{symbol} top trader long/short ratio extreme short {top_trader_ratio}",
			"taker_ratio_flip_long":    "{symbol} taker ratio flipped long {prev_ratio}->{curr_ratio}",
			"taker_ratio_flip_short":   "{symbol} taker ratio flipped short {prev_ratio}->{curr_ratio}",
		},
	}
}
