// internal/aggregate/stock.go
package aggregate

import "github.com/andresuchdata/invsync/internal/domain"

// WarehouseStock builds the item -> warehouse -> quantity map from per-item
// stock lookups, retaining only non-zero quantities.
func WarehouseStock(items []*domain.ItemStock) domain.WarehouseStockMap {
	stock := make(domain.WarehouseStockMap)

	for _, item := range items {
		if item == nil || item.ItemNo == "" {
			continue
		}
		for _, wh := range item.Detail {
			if wh.Quantity == 0 {
				continue
			}
			byWarehouse, ok := stock[item.ItemNo]
			if !ok {
				byWarehouse = make(map[string]float64)
				stock[item.ItemNo] = byWarehouse
			}
			byWarehouse[wh.Warehouse] += wh.Quantity
		}
	}

	return stock
}
