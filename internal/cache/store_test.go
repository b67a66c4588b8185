package cache

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", []byte("v1")))
	entry, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), entry.Payload)
	assert.False(t, entry.Timestamp.IsZero())

	// Overwrite.
	require.NoError(t, store.Put(ctx, "k", []byte("v2")))
	entry, _, _ = store.Get(ctx, "k")
	assert.Equal(t, []byte("v2"), entry.Payload)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStoreDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, key := range []string{"sales-cache-2025-01-01", "sales-cache-2025-01-01-branch7", "warehouse-stock-cache"} {
		require.NoError(t, store.Put(ctx, key, []byte("x")))
	}

	require.NoError(t, store.DeleteByPrefix(ctx, "sales-cache-"))

	_, ok, _ := store.Get(ctx, "sales-cache-2025-01-01")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "sales-cache-2025-01-01-branch7")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "warehouse-stock-cache")
	assert.True(t, ok)
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "k", []byte("abc")))

	entry, _, _ := store.Get(ctx, "k")
	entry.Payload[0] = 'z'

	again, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again.Payload)
}

func TestFreshBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{Timestamp: now.Add(-time.Hour)}

	assert.True(t, Fresh(entry, time.Hour, now)) // exactly at TTL is still fresh
	assert.False(t, Fresh(entry, time.Hour-time.Second, now))
	assert.True(t, Fresh(entry, 2*time.Hour, now))
	assert.False(t, Fresh(nil, time.Hour, now))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "sales-cache-2025-01-01", SalesKey("2025-01-01", 0))
	assert.Equal(t, "sales-cache-2025-01-01-branch7", SalesKey("2025-01-01", 7))
	assert.Equal(t, "warehouse-stock-cache", StockKey())
	assert.Equal(t, "po-outstanding-cache", POKey())
}

func TestSalesPayloadRoundTrip(t *testing.T) {
	payload := SalesPayload{
		FromDate: "2025-01-01",
		Branch:   7,
		Items: map[string]*domain.ItemSalesAggregate{
			"A-1": {
				ItemNo:       "A-1",
				TotalQty:     36,
				TotalRevenue: decimal.NewFromInt(150000),
				Monthly: map[string]*domain.MonthlyBucket{
					"Jan|2025": {Qty: 36, Revenue: decimal.NewFromInt(150000)},
				},
			},
		},
	}

	raw, err := EncodeSales(payload)
	require.NoError(t, err)

	decoded, err := DecodeSales(raw)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, decoded.Version)
	assert.Equal(t, "2025-01-01", decoded.FromDate)
	require.Contains(t, decoded.Items, "A-1")
	assert.Equal(t, 36.0, decoded.Items["A-1"].TotalQty)
	assert.True(t, decoded.Items["A-1"].TotalRevenue.Equal(decimal.NewFromInt(150000)))
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	raw := []byte(`{"version": 999, "items": {}}`)
	_, err := DecodeSales(raw)
	assert.Error(t, err)

	_, err = DecodeStock([]byte(`{"version": 0}`))
	assert.Error(t, err)
}
