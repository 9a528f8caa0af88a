package scanner

import "strings"

// Nifty50 is the default screening universe.
var Nifty50 = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
	"HINDUNILVR", "ITC", "SBIN", "BHARTIARTL", "KOTAKBANK",
	"LT", "AXISBANK", "ASIANPAINT", "MARUTI", "TITAN",
	"SUNPHARMA", "ULTRACEMCO", "BAJFINANCE", "WIPRO", "NESTLEIND",
	"POWERGRID", "NTPC", "TECHM", "HCLTECH", "ONGC",
	"TATAMOTORS", "TATASTEEL", "JSWSTEEL", "ADANIENT", "ADANIPORTS",
	"COALINDIA", "DIVISLAB", "DRREDDY", "CIPLA", "APOLLOHOSP",
	"BAJAJFINSV", "BAJAJ-AUTO", "EICHERMOT", "HEROMOTOCO", "M&M",
	"BRITANNIA", "GRASIM", "HINDALCO", "INDUSINDBK", "SBILIFE",
	"HDFCLIFE", "BPCL", "IOC", "UPL", "TATACONSUM",
}

// NormalizeUniverse upper-cases, trims and de-duplicates symbols, keeping
// first-seen order.
func NormalizeUniverse(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ResolveUniverse returns the first non-empty list, falling back to Nifty50.
func ResolveUniverse(lists ...[]string) []string {
	for _, l := range lists {
		if u := NormalizeUniverse(l); len(u) > 0 {
			return u
		}
	}
	return append([]string(nil), Nifty50...)
}
