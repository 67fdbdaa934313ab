// Package currency provides the fixed-point representation used for all
// balance critical math. Amounts are carried as whole micro-coins so no
// floating point binary math ever touches a balance.
package currency

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnitsPerCoin is the number of indivisible units in one DataCoin.
const UnitsPerCoin = 1_000_000

// OneBP represents a multiplier of 1.0 expressed in basis points. All rate
// multipliers (quality, source weight, freshness) are carried in basis
// points and applied with integer arithmetic.
const OneBP = 10_000

// Units represents an amount of currency in micro-coins.
type Units uint64

// Parse converts a decimal string like "10" or "0.005" into Units. At most
// six fractional digits are supported since that is the unit resolution.
func Parse(amount string) (Units, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(amount), ".")

	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	if len(frac) > 6 {
		return 0, errors.New("amount exceeds six fractional digits")
	}

	var f uint64
	if frac != "" {
		f, err = strconv.ParseUint(frac+strings.Repeat("0", 6-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
	}

	return Units(w*UnitsPerCoin + f), nil
}

// String formats the units as a decimal coin amount.
func (u Units) String() string {
	whole := uint64(u) / UnitsPerCoin
	frac := uint64(u) % UnitsPerCoin

	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}

	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}

// ApplyBP scales the units by a basis point multiplier. The division happens
// per application to keep intermediate values inside uint64 range.
func (u Units) ApplyBP(bp uint64) Units {
	return Units(uint64(u) * bp / OneBP)
}

// ClampBP bounds a basis point multiplier to the [min,max] band.
func ClampBP(bp, min, max uint64) uint64 {
	if bp < min {
		return min
	}
	if bp > max {
		return max
	}
	return bp
}
