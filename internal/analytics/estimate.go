// internal/analytics/estimate.go
package analytics

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/andresuchdata/invsync/internal/domain"
)

// Price tiers assigned to items without sales history. The tier is picked
// by item-number hash so repeated runs agree.
var estimatedPriceTiers = []float64{15000, 35000, 75000, 150000, 350000}

// estimateSeries synthesizes a plausible monthly demand history for an item
// that has stock but no sales in the window. The series is a deterministic
// function of the item number: same item, same window, same output. Base
// demand scales with current stock, shaped by a yearly sine seasonality, a
// mild growth trend, and bounded hash-seeded noise.
func estimateSeries(itemNo string, stock float64, months int, fromDate time.Time) demandSeries {
	seed := hashSeed(itemNo)
	rng := rand.New(rand.NewSource(int64(seed)))

	price := estimatedPriceTiers[seed%uint64(len(estimatedPriceTiers))]

	base := stock / 3
	if base < 2 {
		base = float64(2 + seed%9)
	}
	if base > 500 {
		base = 500
	}

	phase := float64(seed % 12)
	points := make([]domain.MonthlyPoint, 0, months)
	cursor := monthStart(fromDate)
	for i := 0; i < months; i++ {
		seasonal := 1 + 0.25*math.Sin(2*math.Pi*(float64(i)+phase)/12)
		growth := 1 + 0.02*float64(i)
		noise := 0.85 + 0.3*rng.Float64()

		qty := math.Round(base * seasonal * growth * noise)
		if qty < 0 {
			qty = 0
		}

		points = append(points, domain.MonthlyPoint{
			Month:   domain.MonthKey(cursor),
			Qty:     qty,
			Revenue: qty * price,
		})
		cursor = cursor.AddDate(0, 1, 0)
	}

	return demandSeries{
		itemName: itemNo,
		points:   points,
		price:    price,
		source:   domain.SourceEstimated,
	}
}

func hashSeed(itemNo string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(itemNo))
	return h.Sum64()
}
