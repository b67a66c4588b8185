package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/invsync/internal/analytics"
	"github.com/andresuchdata/invsync/internal/cache"
	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrNotSynced is returned when the sales snapshot an analysis needs has
// never been synced. Branch-scoped requests get it for their branch key
// specifically; an aggregate snapshot never stands in for a branch one.
var ErrNotSynced = errors.New("sales snapshot not available, run a sync first")

// AnalysisService reads the synced snapshots out of the cache and hands
// them to the analytics engine. It never fetches from the remote API.
type AnalysisService struct {
	store    cache.Store
	engine   *analytics.Engine
	fromDate string // yyyy-mm-dd window start

	now func() time.Time
}

func NewAnalysisService(store cache.Store, engine *analytics.Engine, fromDate string) *AnalysisService {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &AnalysisService{
		store:    store,
		engine:   engine,
		fromDate: fromDate,
		now:      time.Now,
	}
}

// AnalysisResult is the report envelope: the per-item analytics plus the
// provenance of the snapshots it was computed from.
type AnalysisResult struct {
	Items       []domain.InventoryAnalysisItem `json:"items"`
	Branch      int64                          `json:"branch,omitempty"`
	FromDate    string                         `json:"fromDate"`
	GeneratedAt time.Time                      `json:"generatedAt"`
	SalesAge    string                         `json:"salesAge"`
	Stale       bool                           `json:"stale,omitempty"`
}

// InventoryAnalysis computes the report for one branch (0 = all branches).
// A stale sales snapshot still produces a report, flagged Stale; a missing
// one is a hard error so callers know to sync.
func (s *AnalysisService) InventoryAnalysis(ctx context.Context, branch int64) (*AnalysisResult, error) {
	now := s.now()

	salesKey := cache.SalesKey(s.fromDate, branch)
	entry, ok, err := s.store.Get(ctx, salesKey)
	if err != nil {
		return nil, fmt.Errorf("reading sales snapshot: %w", err)
	}
	if !ok {
		return nil, ErrNotSynced
	}

	sales, err := cache.DecodeSales(entry.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding sales snapshot: %w", err)
	}

	stale := !cache.Fresh(entry, cache.TTLSales, now)
	if stale {
		log.Warn().
			Str("key", salesKey).
			Time("synced_at", entry.Timestamp).
			Msg("sales snapshot is stale, analysis will use it anyway")
	}

	stock := s.loadStock(ctx)
	poOutstanding := s.loadPOOutstanding(ctx)

	fromDate, err := time.Parse("2006-01-02", s.fromDate)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis from date %q: %w", s.fromDate, err)
	}

	items := s.engine.Analyze(analytics.Input{
		Sales:         sales.Items,
		Stock:         stock,
		POOutstanding: poOutstanding,
		FromDate:      fromDate,
		Now:           now,
	})

	return &AnalysisResult{
		Items:       items,
		Branch:      branch,
		FromDate:    s.fromDate,
		GeneratedAt: now,
		SalesAge:    now.Sub(entry.Timestamp).Round(time.Second).String(),
		Stale:       stale,
	}, nil
}

// loadStock returns the warehouse stock snapshot, or an empty map when it
// is missing or unreadable. Analysis can proceed without it; every item
// just reports zero on-hand.
func (s *AnalysisService) loadStock(ctx context.Context) domain.WarehouseStockMap {
	entry, ok, err := s.store.Get(ctx, cache.StockKey())
	if err != nil || !ok {
		if err != nil {
			log.Warn().Err(err).Msg("reading stock snapshot failed")
		}
		return domain.WarehouseStockMap{}
	}

	payload, err := cache.DecodeStock(entry.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("decoding stock snapshot failed")
		return domain.WarehouseStockMap{}
	}
	return payload.Stock
}

func (s *AnalysisService) loadPOOutstanding(ctx context.Context) domain.POOutstandingMap {
	entry, ok, err := s.store.Get(ctx, cache.POKey())
	if err != nil || !ok {
		if err != nil {
			log.Warn().Err(err).Msg("reading po outstanding snapshot failed")
		}
		return nil
	}

	payload, err := cache.DecodePO(entry.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("decoding po outstanding snapshot failed")
		return nil
	}
	return payload.Outstanding
}
