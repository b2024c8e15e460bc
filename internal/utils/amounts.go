package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// reputationScale is the fixed-point scale the reputation registry applies to
// aggregated scores.
var reputationScale = new(big.Float).SetFloat64(1e18)

// ParseUnits converts a decimal string ("10", "9.80") into fixed-point token
// units with the given number of decimals. Excess fractional digits are
// rejected rather than silently truncated.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	result, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	return result, nil
}

// FormatUnits renders fixed-point token units as a decimal string with
// trailing zeros trimmed ("10.000000" -> "10", "9.800000" -> "9.8").
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	s := amount.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	split := len(s) - int(decimals)
	whole, frac := s[:split], s[split:]
	frac = strings.TrimRight(frac, "0")
	out := whole
	if frac != "" {
		out = whole + "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ApplyFeeBps returns amount minus a basis-point fee, matching the escrow
// contract's integer split (fee rounds down, payout gets the remainder).
func ApplyFeeBps(amount *big.Int, feeBps int64) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(feeBps))
	fee.Div(fee, big.NewInt(10000))
	return new(big.Int).Sub(amount, fee)
}

// NormalizeReputationScore scales a raw 1e18 fixed-point registry score down
// to its 0-100 display value.
func NormalizeReputationScore(raw *big.Int) float64 {
	if raw == nil {
		return 0
	}
	normalized, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), reputationScale).Float64()
	return normalized
}
