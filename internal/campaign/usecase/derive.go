package usecase

import (
	"math"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

// Derive computes the per-row ratios from the row's own numeric fields.
//
// Each denominator is floored at 1, so a zero count yields the numerator
// itself instead of an undefined ratio. The results are always finite.
func Derive(row *entity.Row) {
	row.CTR = row.Clicks / floorOne(row.Impressions)
	row.CPA = row.Spend / floorOne(row.Conversions)
	row.CPC = row.Spend / floorOne(row.Clicks)
}

func floorOne(v float64) float64 {
	return math.Max(v, 1)
}
