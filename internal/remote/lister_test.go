package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refs(ids ...int64) []domain.RemoteRecordRef {
	out := make([]domain.RemoteRecordRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.RemoteRecordRef{ID: id})
	}
	return out
}

func TestListerStopsOnEmptyPage(t *testing.T) {
	fetched := 0
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		fetched++
		if page >= 3 {
			return nil, nil
		}
		return refs(int64(page)), nil
	}

	got, err := NewPagedLister(EntitySalesInvoice, fetch, ListerOptions{}).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3, fetched)
}

func TestListerHonorsPageCap(t *testing.T) {
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		return refs(int64(page)), nil // never empty
	}

	got, err := NewPagedLister(EntitySalesInvoice, fetch, ListerOptions{MaxPages: 5}).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestListerPartialResultOnPageError(t *testing.T) {
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		if page == 3 {
			return nil, errors.New("upstream 500")
		}
		return refs(int64(page)), nil
	}

	got, err := NewPagedLister(EntitySalesInvoice, fetch, ListerOptions{}).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListerPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		if page == 2 {
			cancel()
			return nil, ctx.Err()
		}
		return refs(int64(page)), nil
	}

	got, err := NewPagedLister(EntitySalesInvoice, fetch, ListerOptions{}).Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, got, 1)
}

func TestListerMatchlessRunStopsScan(t *testing.T) {
	fetched := 0
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		fetched++
		if page == 1 {
			return []domain.RemoteRecordRef{{ID: 1, StatusName: "Terbuka"}}, nil
		}
		return []domain.RemoteRecordRef{{ID: int64(page), StatusName: "Ditutup"}}, nil
	}
	keep := func(ref domain.RemoteRecordRef) bool {
		return !domain.ParseRecordStatus(ref.StatusName).Excluded()
	}

	got, err := NewPagedLister(EntityPurchaseOrder, fetch, ListerOptions{
		MaxPages:          200,
		Keep:              keep,
		MaxMatchlessPages: 3,
	}).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	// Page 1 matched, then three matchless pages end the scan.
	assert.Equal(t, 4, fetched)
}

func TestDefaultListerOptions(t *testing.T) {
	assert.Equal(t, 500, DefaultListerOptions(EntitySalesInvoice).MaxPages)
	assert.Equal(t, 200, DefaultListerOptions(EntityPurchaseOrder).MaxPages)
}
