package aggregate

import (
	"math/rand"
	"testing"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoice(id int64, date string, branch int64, lines ...domain.LineItem) domain.RecordDetail {
	return domain.RecordDetail{
		ID:        id,
		Number:    "SI-0001",
		TransDate: date,
		BranchID:  branch,
		Lines:     lines,
	}
}

func line(itemNo string, qty, baseQty float64, total float64) domain.LineItem {
	return domain.LineItem{
		ItemNo:       itemNo,
		ItemName:     "Item " + itemNo,
		Quantity:     qty,
		BaseQuantity: baseQty,
		TotalPrice:   decimal.NewFromFloat(total),
		UnitName:     "BOX",
	}
}

func TestSalesAccumulatesMonthlyBuckets(t *testing.T) {
	records := []domain.RecordDetail{
		invoice(1, "10/01/2025", 0, line("A-1", 2, 24, 50000)),
		invoice(2, "25/01/2025", 0, line("A-1", 1, 12, 25000)),
		invoice(3, "05/02/2025", 0, line("A-1", 3, 36, 75000)),
	}

	agg := Sales(records, 0)
	require.Contains(t, agg.Items, "A-1")

	item := agg.Items["A-1"]
	assert.Equal(t, 72.0, item.TotalQty)
	assert.Equal(t, 6.0, item.TotalQtySalesUnit)
	assert.True(t, item.TotalRevenue.Equal(decimal.NewFromInt(150000)))
	assert.Equal(t, 12.0, item.ConversionRatio)

	require.Contains(t, item.Monthly, "Jan|2025")
	require.Contains(t, item.Monthly, "Feb|2025")
	assert.Equal(t, 36.0, item.Monthly["Jan|2025"].Qty)
	assert.Equal(t, 36.0, item.Monthly["Feb|2025"].Qty)

	// Totals always equal the sum over monthly buckets.
	var qty float64
	for _, bucket := range item.Monthly {
		qty += bucket.Qty
	}
	assert.Equal(t, item.TotalQty, qty)
}

// The reduction is a commutative fold: shuffling the input records must not
// change any total or bucket.
func TestSalesOrderIndependent(t *testing.T) {
	records := []domain.RecordDetail{
		invoice(1, "03/01/2025", 7, line("A-1", 2, 24, 50000)),
		invoice(2, "14/01/2025", 8, line("B-2", 5, 5, 40000)),
		invoice(3, "20/02/2025", 7, line("A-1", 1, 12, 25000), line("B-2", 2, 2, 16000)),
		invoice(4, "28/03/2025", 9, line("C-3", 10, 120, 900000)),
	}

	want := Sales(records, 0)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := make([]domain.RecordDetail, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Sales(shuffled, 0)
		require.Len(t, got.Items, len(want.Items))
		for no, wantItem := range want.Items {
			gotItem := got.Items[no]
			require.NotNil(t, gotItem, no)
			assert.Equal(t, wantItem.TotalQty, gotItem.TotalQty)
			assert.True(t, wantItem.TotalRevenue.Equal(gotItem.TotalRevenue))
			assert.Equal(t, len(wantItem.Monthly), len(gotItem.Monthly))
		}
	}
}

func TestSalesPerBranchSplit(t *testing.T) {
	records := []domain.RecordDetail{
		invoice(1, "03/01/2025", 7, line("A-1", 2, 24, 50000)),
		invoice(2, "14/01/2025", 8, line("A-1", 1, 12, 25000)),
	}

	agg := Sales(records, 0)
	require.Contains(t, agg.ByBranch, int64(7))
	require.Contains(t, agg.ByBranch, int64(8))

	// Branch maps partition the combined totals.
	combined := agg.Items["A-1"].TotalQty
	split := agg.ByBranch[7]["A-1"].TotalQty + agg.ByBranch[8]["A-1"].TotalQty
	assert.Equal(t, combined, split)

	// A branch-scoped run produces no split at all.
	scoped := Sales(records, 7)
	assert.Nil(t, scoped.ByBranch)
}

func TestSalesRatioNeverZeroedByAmbiguousLine(t *testing.T) {
	records := []domain.RecordDetail{
		// First record establishes ratio 12.
		invoice(1, "03/01/2025", 0, line("A-1", 2, 24, 50000)),
		// Second record carries no base quantity: qtyBase falls back to the
		// sales quantity, which must not overwrite the learned ratio.
		invoice(2, "14/01/2025", 0, line("A-1", 3, 0, 75000)),
	}

	agg := Sales(records, 0)
	assert.Equal(t, 12.0, agg.Items["A-1"].ConversionRatio)
}

func TestSalesSkipsBadDatesAndEmptyItemNos(t *testing.T) {
	records := []domain.RecordDetail{
		invoice(1, "03/01/2025", 0, line("A-1", 2, 24, 50000)),
		invoice(2, "not a date", 0, line("A-1", 99, 99, 999999)),
		invoice(3, "14/01/2025", 0, line("", 5, 5, 40000)),
	}

	agg := Sales(records, 0)
	require.Len(t, agg.Items, 1)
	assert.Equal(t, 24.0, agg.Items["A-1"].TotalQty)
}

func TestSalesRevenueFallsBackToUnitPrice(t *testing.T) {
	records := []domain.RecordDetail{
		invoice(1, "03/01/2025", 0, domain.LineItem{
			ItemNo:    "A-1",
			Quantity:  4,
			UnitPrice: decimal.NewFromInt(2500),
		}),
	}

	agg := Sales(records, 0)
	assert.True(t, agg.Items["A-1"].TotalRevenue.Equal(decimal.NewFromInt(10000)))
}
