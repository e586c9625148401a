package classify

import (
	"regexp"
	"strings"
)

// tickerPattern matches a bare 1-5 letter uppercase symbol, optionally
// prefixed by '$', or a parenthesized exchange-qualified symbol such as
// "(NASDAQ: XYZ)".
var tickerPattern = regexp.MustCompile(`\$?\b([A-Z]{1,5})\b`)

var exchangeQualified = regexp.MustCompile(`(?i)\((?:NASDAQ|NYSE|OTC|OTCQB|OTCQX|TSX|TSXV)\s*[:\-]\s*([A-Za-z]{1,5})\)`)

// commonCapsWords excludes frequent all-caps acronyms that are not tickers.
var commonCapsWords = map[string]bool{
	"FDA": true, "SEC": true, "CEO": true, "CFO": true, "IPO": true,
	"USA": true, "GAAP": true, "LLC": true, "INC": true, "LTD": true,
	"Q1": true, "Q2": true, "Q3": true, "Q4": true, "US": true, "UK": true,
	"AI": true, "IT": true, "EPS": true, "SaaS": true, "R&D": true,
}

// ResolveTickers implements the ticker-resolution heuristic from §4.F
// step 1: prefer the feed-provided hint; otherwise extract candidates
// from the title by exchange-qualified mentions first, then bare
// uppercase symbols, filtering common acronyms.
func ResolveTickers(title string, hint []string) []string {
	if len(hint) > 0 {
		return dedupeStrings(hint)
	}

	var found []string
	seen := map[string]bool{}

	for _, m := range exchangeQualified.FindAllStringSubmatch(title, -1) {
		sym := strings.ToUpper(m[1])
		if !seen[sym] {
			seen[sym] = true
			found = append(found, sym)
		}
	}
	if len(found) > 0 {
		return found
	}

	for _, m := range tickerPattern.FindAllStringSubmatch(title, -1) {
		sym := m[1]
		if commonCapsWords[sym] || seen[sym] {
			continue
		}
		seen[sym] = true
		found = append(found, sym)
	}
	return found
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
