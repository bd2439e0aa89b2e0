package core

import "strings"

// assetAliases maps human asset codes to exchange-native codes. Unknown codes
// pass through upper-cased unchanged.
var assetAliases = map[string]string{
	"BTC": "XXBT",
	"XBT": "XXBT",
	"ETH": "XETH",
	"XRP": "XXRP",
	"LTC": "XLTC",
	"USD": "ZUSD",
}

// knownPairs matches exchange-native 6-letter pair codes without a separator.
var knownPairs = map[string][2]string{
	"XBTUSD": {"XXBT", "ZUSD"},
	"ETHUSD": {"XETH", "ZUSD"},
	"XRPUSD": {"XXRP", "ZUSD"},
	"LTCUSD": {"XLTC", "ZUSD"},
	"ADAUSD": {"ADA", "ZUSD"},
	"DOTUSD": {"DOT", "ZUSD"},
}

// exchangeCodes maps canonical asset codes back to the short form used in
// exchange pair notation.
var exchangeCodes = map[string]string{
	"XXBT": "XBT",
	"XETH": "ETH",
	"XXRP": "XRP",
	"XLTC": "LTC",
	"ZUSD": "USD",
}

// CanonicalAsset maps an asset code in either notation to its exchange-native
// form. Total: unknown codes come back upper-cased unchanged.
func CanonicalAsset(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if native, ok := assetAliases[code]; ok {
		return native
	}
	return code
}

// ToCanonical resolves a pair in either notation to its exchange-native
// (base, quote) asset codes. Total: every input produces a pair; invalid pairs
// surface later at validation through the minimum-size lookup, never here.
func ToCanonical(pair string) (base, quote string) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if i := strings.Index(p, "/"); i >= 0 {
		return CanonicalAsset(p[:i]), CanonicalAsset(p[i+1:])
	}
	if assets, ok := knownPairs[p]; ok {
		return assets[0], assets[1]
	}
	if len(p) > 3 && strings.HasSuffix(p, "USD") {
		return CanonicalAsset(strings.TrimSuffix(p, "USD")), "ZUSD"
	}
	return CanonicalAsset(p), "ZUSD"
}

// CanonicalPairName renders a pair in either notation as "BASE/QUOTE" using
// exchange-native asset codes, e.g. "XXBT/ZUSD".
func CanonicalPairName(pair string) string {
	base, quote := ToCanonical(pair)
	return base + "/" + quote
}

// ToExchangeNotation renders a pair in either notation as the separator-free
// exchange pair code, e.g. "XBTUSD".
func ToExchangeNotation(pair string) string {
	base, quote := ToCanonical(pair)
	return exchangeCode(base) + exchangeCode(quote)
}

func exchangeCode(asset string) string {
	if short, ok := exchangeCodes[asset]; ok {
		return short
	}
	return asset
}
