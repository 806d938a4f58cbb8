package utils

import "github.com/shopspring/decimal"

// Round2 rounds d to 2 decimal places (cents).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns pct% of amount, rounded to cents.
func Percent(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(2)
}

// Remainder returns amount minus the sum of prior parts, so a final slice
// absorbs any rounding drift and the parts sum back to amount exactly.
func Remainder(amount decimal.Decimal, parts ...decimal.Decimal) decimal.Decimal {
	rest := amount
	for _, p := range parts {
		rest = rest.Sub(p)
	}
	return rest.Round(2)
}

// MustDecimal parses s as a decimal, returning zero on failure. For literals
// in tests and defaults only; wire parsing goes through the normalizer.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
