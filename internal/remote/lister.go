// internal/remote/lister.go
package remote

import (
	"context"
	"errors"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// PageFunc fetches one page of record references. Pages are numbered from 1.
type PageFunc func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error)

// ListerOptions controls when a PagedLister stops.
type ListerOptions struct {
	MaxPages int // absolute page cap

	// Keep narrows the live-paged records client-side. When set, a run of
	// MaxMatchlessPages consecutive pages with no kept record stops the
	// scan early so a small target subset never walks the whole dataset.
	Keep              func(domain.RemoteRecordRef) bool
	MaxMatchlessPages int
}

// DefaultListerOptions returns the per-entity page caps.
func DefaultListerOptions(entity string) ListerOptions {
	opts := ListerOptions{MaxPages: 500, MaxMatchlessPages: 30}
	if entity == EntityPurchaseOrder {
		opts.MaxPages = 200
	}
	return opts
}

// PagedLister walks a paged list endpoint and collects record references.
// The sequence is finite and non-restartable; a page failure ends the walk
// with whatever was collected so far.
type PagedLister struct {
	entity string
	fetch  PageFunc
	opts   ListerOptions
}

// NewPagedLister builds a lister over an arbitrary page source.
func NewPagedLister(entity string, fetch PageFunc, opts ListerOptions) *PagedLister {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 500
	}
	if opts.MaxMatchlessPages <= 0 {
		opts.MaxMatchlessPages = 30
	}
	return &PagedLister{entity: entity, fetch: fetch, opts: opts}
}

// Lister builds a PagedLister for an entity with the given list parameters.
func (c *Client) Lister(entity string, params ListParams, opts ListerOptions) *PagedLister {
	if params.PageSize <= 0 {
		params.PageSize = 100
	}
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		p := params
		p.Page = page
		return c.ListPage(ctx, entity, p)
	}
	return NewPagedLister(entity, fetch, opts)
}

// Collect runs the pagination until a stop condition is met and returns all
// collected references. Page errors other than context cancellation degrade
// to a partial result; only the caller's cancellation aborts with an error.
func (l *PagedLister) Collect(ctx context.Context) ([]domain.RemoteRecordRef, error) {
	var (
		refs      []domain.RemoteRecordRef
		matchless int
	)

	for page := 1; page <= l.opts.MaxPages; page++ {
		pageRefs, err := l.fetch(ctx, page)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return refs, err
			}
			log.Warn().Err(err).
				Str("entity", l.entity).
				Int("page", page).
				Int("collected", len(refs)).
				Msg("page fetch failed, stopping with partial listing")
			return refs, nil
		}

		if len(pageRefs) == 0 {
			break
		}

		if l.opts.Keep == nil {
			refs = append(refs, pageRefs...)
			continue
		}

		kept := 0
		for _, ref := range pageRefs {
			if l.opts.Keep(ref) {
				refs = append(refs, ref)
				kept++
			}
		}
		if kept == 0 {
			matchless++
			if matchless >= l.opts.MaxMatchlessPages {
				log.Debug().
					Str("entity", l.entity).
					Int("page", page).
					Int("matchless_pages", matchless).
					Msg("matchless page run exceeded, stopping scan")
				break
			}
			continue
		}
		matchless = 0
	}

	return refs, nil
}
