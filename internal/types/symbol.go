package types

import "strings"

// symbolAliases maps the index names users type to the provider tickers.
var symbolAliases = map[string]string{
	"nifty":     "^NSEI",
	"banknifty": "^NSEBANK",
	"finnifty":  "NIFTY_FIN_SERVICE.NS",
}

// ResolveSymbol maps a friendly instrument name to its provider ticker.
// Unknown names are returned unchanged.
func ResolveSymbol(name string) string {
	if ticker, ok := symbolAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return ticker
	}

	return strings.TrimSpace(name)
}

// StorageName returns the directory-safe form of a ticker ("^NSEI" -> "NSEI",
// "NIFTY_FIN_SERVICE.NS" -> "NIFTY_FIN_SERVICE_NS").
func StorageName(ticker string) string {
	return strings.ReplaceAll(strings.ReplaceAll(ticker, "^", ""), ".", "_")
}
