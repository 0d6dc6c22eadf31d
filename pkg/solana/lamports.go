package solana

import (
	"fmt"
	"strconv"
	"strings"
)

// LamportsPerSOL is the fixed conversion scale between SOL and lamports.
const LamportsPerSOL = 1_000_000_000

// solDecimals is the number of fractional digits a SOL amount can carry.
const solDecimals = 9

// ParseSOL converts a decimal SOL string (e.g. "1.5") to lamports.
// The conversion is exact integer arithmetic; amounts with more than nine
// fractional digits are rejected rather than rounded.
func ParseSOL(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount: %s", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > solDecimals {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", s, solDecimals)
	}

	wholeUnits, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	// Right-pad the fraction to nine digits: "5" -> 500000000 lamports.
	fracUnits := uint64(0)
	if frac != "" {
		padded := frac + strings.Repeat("0", solDecimals-len(frac))
		fracUnits, err = strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}

	const maxWhole = ^uint64(0) / LamportsPerSOL
	if wholeUnits > maxWhole || (wholeUnits == maxWhole && fracUnits > ^uint64(0)-maxWhole*LamportsPerSOL) {
		return 0, fmt.Errorf("amount %s overflows lamports", s)
	}

	return wholeUnits*LamportsPerSOL + fracUnits, nil
}

// FormatSOL renders lamports as a decimal SOL string with trailing zeros trimmed.
func FormatSOL(lamports uint64) string {
	whole := lamports / LamportsPerSOL
	frac := lamports % LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	return strings.TrimRight(s, "0")
}
