package tradeability

import (
	"strings"
	"unicode"
)

// Structural exclusion reasons
const (
	ReasonWarrant   = "suffix_warrant"
	ReasonUnit      = "suffix_unit"
	ReasonRights    = "suffix_rights"
	ReasonPreferred = "suffix_preferred"
	ReasonOTC       = "suffix_otc"
	ReasonADR       = "suffix_adr"
	ReasonInvalid   = "invalid_symbol"
)

// class suffixes after a '.', '/' or '-' separator
var classSuffixes = map[string]string{
	"WS": ReasonWarrant,
	"WT": ReasonWarrant,
	"W":  ReasonWarrant,
	"U":  ReasonUnit,
	"UN": ReasonUnit,
	"RT": ReasonRights,
	"R":  ReasonRights,
}

// fifth-letter NASDAQ suffixes
var fifthLetter = map[byte]string{
	'W': ReasonWarrant,
	'U': ReasonUnit,
	'R': ReasonRights,
	'F': ReasonOTC, // foreign, OTC
	'Q': ReasonOTC, // bankruptcy
	'Y': ReasonADR,
}

// CheckSymbol rejects derivative-instrument symbols on the string alone.
// No network call.
func CheckSymbol(ticker string) (bool, string) {
	if ticker == "" {
		return false, ReasonInvalid
	}

	// ABCpA 형태 (소문자 p = preferred)
	if strings.ContainsRune(ticker, 'p') {
		return false, ReasonPreferred
	}

	if i := strings.IndexAny(ticker, "./-"); i >= 0 {
		suffix := ticker[i+1:]
		if reason, ok := classSuffixes[suffix]; ok {
			return false, reason
		}
		if strings.HasPrefix(suffix, "P") {
			return false, ReasonPreferred
		}
		// BRK.B 같은 보통주 class는 통과
		ticker = ticker[:i]
	}

	for _, r := range ticker {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false, ReasonInvalid
		}
	}

	if len(ticker) >= 5 {
		if reason, ok := fifthLetter[ticker[len(ticker)-1]]; ok {
			return false, reason
		}
	}

	return true, ""
}

// SymbolFilter applies CheckSymbol with an allowlist that skips it
type SymbolFilter struct {
	allow map[string]struct{}
}

// NewSymbolFilter creates a filter; allowlisted tickers bypass the suffix check
func NewSymbolFilter(allowlist []string) *SymbolFilter {
	allow := make(map[string]struct{}, len(allowlist))
	for _, t := range allowlist {
		allow[strings.ToUpper(strings.TrimSpace(t))] = struct{}{}
	}
	return &SymbolFilter{allow: allow}
}

// Check returns (ok, reason) for one ticker
func (f *SymbolFilter) Check(ticker string) (bool, string) {
	if _, ok := f.allow[ticker]; ok {
		return true, ""
	}
	return CheckSymbol(ticker)
}
