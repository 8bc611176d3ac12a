package analytics

import "github.com/shopspring/decimal"

// mean1 returns the arithmetic mean of vals rounded half-up to one decimal.
// vals must be non-empty.
func mean1(vals []float64) float64 {
	sum := decimal.Zero
	for _, v := range vals {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(vals)))).Round(1).InexactFloat64()
}

// percent returns part/whole as a whole-number percentage rounded half-up,
// or 0 when whole is zero.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(part) * 100).Div(decimal.NewFromInt(int64(whole))).Round(0).IntPart())
}
