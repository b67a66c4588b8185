// internal/cache/payload.go
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/invsync/internal/domain"
)

// SchemaVersion tags every payload so a reader can reject snapshots written
// by an incompatible build instead of misreading them.
const SchemaVersion = 1

// Read-side TTLs per domain.
const (
	TTLSales = time.Hour
	TTLStock = 2 * time.Hour
	TTLPO    = time.Hour
	TTLSO    = time.Hour
)

// SalesPayload is the committed sales snapshot for one date scope. Branch is
// zero for the combined entry.
type SalesPayload struct {
	Version  int                                   `json:"version"`
	FromDate string                                `json:"fromDate"`
	Branch   int64                                 `json:"branch,omitempty"`
	Items    map[string]*domain.ItemSalesAggregate `json:"items"`
}

type StockPayload struct {
	Version int                      `json:"version"`
	Stock   domain.WarehouseStockMap `json:"stock"`
}

type POPayload struct {
	Version     int                     `json:"version"`
	Outstanding domain.POOutstandingMap `json:"outstanding"`
}

type SOPayload struct {
	Version int                    `json:"version"`
	Orders  []domain.SOOutstanding `json:"orders"`
}

// SalesKey encodes domain + date + optional branch, e.g.
// "sales-cache-2025-01-01" or "sales-cache-2025-01-01-branch7".
// A missing per-branch entry is a hard miss for branch-scoped readers;
// they never fall back to the combined entry.
func SalesKey(fromDate string, branch int64) string {
	key := "sales-cache-" + fromDate
	if branch > 0 {
		key = fmt.Sprintf("%s-branch%d", key, branch)
	}
	return key
}

func StockKey() string { return "warehouse-stock-cache" }

func POKey() string { return "po-outstanding-cache" }

func SOKey(branch int64) string {
	if branch > 0 {
		return fmt.Sprintf("so-outstanding-cache-branch%d", branch)
	}
	return "so-outstanding-cache"
}

func EncodeSales(p SalesPayload) ([]byte, error) {
	p.Version = SchemaVersion
	return json.Marshal(p)
}

func DecodeSales(raw []byte) (*SalesPayload, error) {
	var p SalesPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode sales payload: %w", err)
	}
	if p.Version != SchemaVersion {
		return nil, fmt.Errorf("sales payload version %d, want %d", p.Version, SchemaVersion)
	}
	return &p, nil
}

func EncodeStock(p StockPayload) ([]byte, error) {
	p.Version = SchemaVersion
	return json.Marshal(p)
}

func DecodeStock(raw []byte) (*StockPayload, error) {
	var p StockPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode stock payload: %w", err)
	}
	if p.Version != SchemaVersion {
		return nil, fmt.Errorf("stock payload version %d, want %d", p.Version, SchemaVersion)
	}
	return &p, nil
}

func EncodePO(p POPayload) ([]byte, error) {
	p.Version = SchemaVersion
	return json.Marshal(p)
}

func DecodePO(raw []byte) (*POPayload, error) {
	var p POPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode po payload: %w", err)
	}
	if p.Version != SchemaVersion {
		return nil, fmt.Errorf("po payload version %d, want %d", p.Version, SchemaVersion)
	}
	return &p, nil
}

func EncodeSO(p SOPayload) ([]byte, error) {
	p.Version = SchemaVersion
	return json.Marshal(p)
}

func DecodeSO(raw []byte) (*SOPayload, error) {
	var p SOPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode so payload: %w", err)
	}
	if p.Version != SchemaVersion {
		return nil, fmt.Errorf("so payload version %d, want %d", p.Version, SchemaVersion)
	}
	return &p, nil
}
