// internal/sync/coordinator.go
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/invsync/internal/aggregate"
	"github.com/andresuchdata/invsync/internal/archive"
	"github.com/andresuchdata/invsync/internal/cache"
	"github.com/andresuchdata/invsync/internal/config"
	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/andresuchdata/invsync/internal/remote"
	"github.com/andresuchdata/invsync/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSyncInProgress is returned when a trigger fires while another job holds
// the single-flight lock. Scheduled triggers log it and skip.
var ErrSyncInProgress = errors.New("a sync job is already running")

// RemoteAPI is the slice of the remote client the coordinator drives.
// *remote.Client satisfies it; tests substitute stubs.
type RemoteAPI interface {
	ListPage(ctx context.Context, entity string, p remote.ListParams) ([]domain.RemoteRecordRef, error)
	Detail(ctx context.Context, entity string, id int64) (*domain.RecordDetail, error)
	ItemStock(ctx context.Context, id int64) (*domain.ItemStock, error)
}

// Config tunes job-level retry and locking behavior.
type Config struct {
	FromDate       string // default lower bound for date-ranged listings, yyyy-mm-dd
	MaxRetries     int
	RetryDelay     time.Duration // between whole-job attempts
	AttemptTimeout time.Duration // wall clock per attempt
	StaleLock      time.Duration // single-flight lock override threshold

	// Fine-grained knobs, mostly for tests.
	DetailBackoffStep time.Duration
	RetryPassDelay    time.Duration
}

// NewConfig converts the environment-level sync settings.
func NewConfig(cfg config.SyncConfig) Config {
	c := Config{
		FromDate:       cfg.FromDate,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     time.Duration(cfg.RetryDelaySeconds) * time.Second,
		AttemptTimeout: time.Duration(cfg.AttemptTimeoutSeconds) * time.Second,
		StaleLock:      time.Duration(cfg.StaleLockSeconds) * time.Second,
	}
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Minute
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 15 * time.Minute
	}
	if c.StaleLock <= 0 {
		c.StaleLock = 20 * time.Minute
	}
	if c.DetailBackoffStep <= 0 {
		c.DetailBackoffStep = time.Second
	}
	if c.RetryPassDelay <= 0 {
		c.RetryPassDelay = 500 * time.Millisecond
	}
	return c
}

// Request describes one sync job.
type Request struct {
	Domain   domain.SyncDomain
	BranchID int64
	FromDate string // overrides Config.FromDate when set
	Force    bool   // bypass the fresh-cache short circuit
	Trigger  domain.SyncTrigger
}

// Coordinator owns the sync state machine: phase pipeline, in-memory-until-
// commit atomicity, whole-job retry, and the single-flight lock with its
// stale override. All fetch and aggregate phases hold results in memory;
// the cache store is only written after every required phase has completed,
// so readers see either the old snapshot or the new one, never a mix.
type Coordinator struct {
	api      RemoteAPI
	store    cache.Store
	repo     repository.SyncRepository
	archiver *archive.Archiver
	cfg      Config

	mu      sync.Mutex
	running bool
	lockSeq uint64
	state   domain.JobState

	now func() time.Time
}

func NewCoordinator(api RemoteAPI, store cache.Store, repo repository.SyncRepository, archiver *archive.Archiver, cfg Config) *Coordinator {
	if repo == nil {
		repo = repository.NewMemorySyncRepository()
	}
	return &Coordinator{
		api:      api,
		store:    store,
		repo:     repo,
		archiver: archiver,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Status returns a point-in-time snapshot of the running job, if any.
func (c *Coordinator) Status() domain.JobState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if state.Running {
		state.ElapsedMS = c.now().Sub(state.StartedAt).Milliseconds()
	}
	return state
}

// History returns the most recent job records, newest first.
func (c *Coordinator) History(ctx context.Context, limit int) ([]domain.SyncJobRecord, error) {
	return c.repo.RecentJobs(ctx, limit)
}

// Sync runs one job for the requested domain. A fresh cached snapshot short
// circuits the run unless the request is forced; in the forced case the old
// entry is left untouched until the new one replaces it at commit.
func (c *Coordinator) Sync(ctx context.Context, req Request) error {
	if !domain.ValidSyncDomain(string(req.Domain)) {
		return fmt.Errorf("unknown sync domain %q", req.Domain)
	}
	if req.Trigger == "" {
		req.Trigger = domain.TriggerManual
	}

	lock, err := c.tryAcquire(req)
	if err != nil {
		return err
	}
	defer c.release(lock)

	if !req.Force && c.hasFreshSnapshot(ctx, req) {
		log.Info().
			Str("domain", string(req.Domain)).
			Msg("cache is fresh, skipping remote sync")
		return nil
	}

	job := &domain.SyncJobRecord{
		ID:        uuid.NewString(),
		Domain:    req.Domain,
		Trigger:   req.Trigger,
		Status:    domain.JobRunning,
		StartedAt: c.now().UTC(),
	}
	if err := c.repo.InsertJob(ctx, job); err != nil {
		log.Warn().Err(err).Msg("could not record sync job start")
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		err := c.runAttempt(attemptCtx, req)
		cancel()

		if err == nil {
			c.finishJob(ctx, job, domain.JobSuccess,
				fmt.Sprintf("completed in %s", c.now().UTC().Sub(job.StartedAt).Round(time.Second)))
			return nil
		}

		lastErr = err
		log.Error().Err(err).
			Str("domain", string(req.Domain)).
			Int("attempt", attempt).
			Int("max_retries", c.cfg.MaxRetries).
			Msg("sync attempt failed")

		if attempt < c.cfg.MaxRetries {
			job.Status = domain.JobRetrying
			job.Message = err.Error()
			if uerr := c.repo.UpdateJob(ctx, job); uerr != nil {
				log.Warn().Err(uerr).Msg("could not record sync job retry")
			}
			c.setPhase("waiting-retry", 0, 0)
			if serr := sleepCtx(ctx, c.cfg.RetryDelay); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	c.finishJob(ctx, job, domain.JobFailed, lastErr.Error())
	return lastErr
}

// tryAcquire takes the single-flight lock and returns an owner token. A
// lock held beyond the stale threshold is assumed abandoned by a crashed
// run and force-cleared; the overridden run's token is invalidated by the
// new acquisition.
func (c *Coordinator) tryAcquire(req Request) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		held := c.now().Sub(c.state.StartedAt)
		if held <= c.cfg.StaleLock {
			return 0, ErrSyncInProgress
		}
		log.Warn().
			Dur("held", held).
			Str("stuck_domain", string(c.state.Domain)).
			Msg("force-clearing stale sync lock")
	}

	c.running = true
	c.lockSeq++
	c.state = domain.JobState{
		Running:   true,
		Domain:    req.Domain,
		Phase:     "starting",
		StartedAt: c.now(),
	}
	return c.lockSeq, nil
}

// release clears the lock only for its current owner. A run that lost the
// lock to a stale override returns here eventually and must not clear the
// overriding run's state.
func (c *Coordinator) release(lock uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.lockSeq != lock {
		return
	}
	c.running = false
	c.state = domain.JobState{}
}

func (c *Coordinator) setPhase(phase string, done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Phase = phase
	c.state.Done = done
	c.state.Total = total
}

func (c *Coordinator) finishJob(ctx context.Context, job *domain.SyncJobRecord, status domain.JobStatus, message string) {
	now := c.now().UTC()
	job.Status = status
	job.Message = message
	job.CompletedAt = &now

	if err := c.repo.UpdateJob(ctx, job); err != nil {
		log.Warn().Err(err).Msg("could not record sync job completion")
	}
	if err := c.repo.PruneJobs(ctx, repository.HistoryLimit); err != nil {
		log.Warn().Err(err).Msg("could not prune sync job history")
	}
}

// hasFreshSnapshot checks the primary cache entry for the request against
// its domain TTL. Read errors count as misses.
func (c *Coordinator) hasFreshSnapshot(ctx context.Context, req Request) bool {
	key, ttl := c.primaryKey(req)
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return false
	}
	return ok && cache.Fresh(entry, ttl, c.now())
}

func (c *Coordinator) primaryKey(req Request) (string, time.Duration) {
	switch req.Domain {
	case domain.DomainStock:
		return cache.StockKey(), cache.TTLStock
	case domain.DomainPO:
		return cache.POKey(), cache.TTLPO
	case domain.DomainSO:
		return cache.SOKey(req.BranchID), cache.TTLSO
	default:
		return cache.SalesKey(c.fromDate(req), req.BranchID), cache.TTLSales
	}
}

func (c *Coordinator) fromDate(req Request) string {
	if req.FromDate != "" {
		return req.FromDate
	}
	return c.cfg.FromDate
}

func (c *Coordinator) runAttempt(ctx context.Context, req Request) error {
	switch req.Domain {
	case domain.DomainSales:
		return c.syncSales(ctx, req)
	case domain.DomainStock:
		return c.syncStock(ctx, req)
	case domain.DomainPO:
		return c.syncPO(ctx, req)
	case domain.DomainSO:
		return c.syncSO(ctx, req)
	default:
		return fmt.Errorf("unknown sync domain %q", req.Domain)
	}
}

// syncSales runs the full sales pipeline: listing, detail, aggregation, the
// warehouse-stock and PO-outstanding secondary phases, then one atomic
// commit. A PO-outstanding failure is logged and does not fail the job.
func (c *Coordinator) syncSales(ctx context.Context, req Request) error {
	dateFrom, dateTo, err := c.dateRange(req)
	if err != nil {
		return err
	}

	c.setPhase("listing", 0, 0)
	params := remote.ListParams{
		PageSize: 100,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		BranchID: req.BranchID,
	}
	refs, err := c.lister(remote.EntitySalesInvoice, params, nil).Collect(ctx)
	if err != nil {
		return fmt.Errorf("listing phase: %w", err)
	}

	c.setPhase("detail", 0, len(refs))
	records, shortfall, err := c.fetchDetails(ctx, remote.EntitySalesInvoice, "detail", refIDs(refs), remote.BatchWidthInvoices)
	if err != nil {
		return fmt.Errorf("detail phase: %w", err)
	}
	if shortfall > 0 {
		log.Warn().Int("shortfall", shortfall).Msg("sales detail phase finished with missing records")
	}

	c.setPhase("aggregate", 0, 0)
	salesAgg := aggregate.Sales(records, req.BranchID)

	c.setPhase("warehouse-stock", 0, 0)
	stock, err := c.collectWarehouseStock(ctx)
	if err != nil {
		return fmt.Errorf("warehouse stock phase: %w", err)
	}

	c.setPhase("po-outstanding", 0, 0)
	poOutstanding, err := c.collectPOOutstanding(ctx, req, dateFrom, dateTo)
	if err != nil {
		log.Warn().Err(err).Msg("po outstanding phase failed, continuing without it")
		poOutstanding = nil
	}

	c.setPhase("commit", 0, 0)
	fromDate := c.fromDate(req)
	entries := make(map[string][]byte)

	combined, err := cache.EncodeSales(cache.SalesPayload{
		FromDate: fromDate,
		Branch:   req.BranchID,
		Items:    salesAgg.Items,
	})
	if err != nil {
		return err
	}
	primaryKey := cache.SalesKey(fromDate, req.BranchID)
	entries[primaryKey] = combined

	// The per-branch split is part of the same atomic commit as the
	// combined entry: one in-memory payload set, one write loop.
	for branch, items := range salesAgg.ByBranch {
		payload, err := cache.EncodeSales(cache.SalesPayload{
			FromDate: fromDate,
			Branch:   branch,
			Items:    items,
		})
		if err != nil {
			return err
		}
		entries[cache.SalesKey(fromDate, branch)] = payload
	}

	stockPayload, err := cache.EncodeStock(cache.StockPayload{Stock: stock})
	if err != nil {
		return err
	}
	entries[cache.StockKey()] = stockPayload

	if poOutstanding != nil {
		poPayload, err := cache.EncodePO(cache.POPayload{Outstanding: poOutstanding})
		if err != nil {
			return err
		}
		entries[cache.POKey()] = poPayload
	}

	c.commit(ctx, domain.DomainSales, primaryKey, entries)
	return nil
}

func (c *Coordinator) syncStock(ctx context.Context, req Request) error {
	stock, err := c.collectWarehouseStock(ctx)
	if err != nil {
		return err
	}

	c.setPhase("commit", 0, 0)
	payload, err := cache.EncodeStock(cache.StockPayload{Stock: stock})
	if err != nil {
		return err
	}
	key := cache.StockKey()
	c.commit(ctx, domain.DomainStock, key, map[string][]byte{key: payload})
	return nil
}

func (c *Coordinator) syncPO(ctx context.Context, req Request) error {
	dateFrom, dateTo, err := c.dateRange(req)
	if err != nil {
		return err
	}

	outstanding, err := c.collectPOOutstanding(ctx, req, dateFrom, dateTo)
	if err != nil {
		return err
	}

	c.setPhase("commit", 0, 0)
	payload, err := cache.EncodePO(cache.POPayload{Outstanding: outstanding})
	if err != nil {
		return err
	}
	key := cache.POKey()
	c.commit(ctx, domain.DomainPO, key, map[string][]byte{key: payload})
	return nil
}

func (c *Coordinator) syncSO(ctx context.Context, req Request) error {
	dateFrom, dateTo, err := c.dateRange(req)
	if err != nil {
		return err
	}

	c.setPhase("listing", 0, 0)
	params := remote.ListParams{
		PageSize: 100,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		BranchID: req.BranchID,
	}
	refs, err := c.lister(remote.EntitySalesOrder, params, keepOpen).Collect(ctx)
	if err != nil {
		return fmt.Errorf("listing phase: %w", err)
	}

	c.setPhase("detail", 0, len(refs))
	records, shortfall, err := c.fetchDetails(ctx, remote.EntitySalesOrder, "detail", refIDs(refs), remote.BatchWidthOrders)
	if err != nil {
		return fmt.Errorf("detail phase: %w", err)
	}
	if shortfall > 0 {
		log.Warn().Int("shortfall", shortfall).Msg("sales order detail phase finished with missing records")
	}

	c.setPhase("aggregate", 0, 0)
	orders := aggregate.SOOutstanding(records)

	c.setPhase("commit", 0, 0)
	payload, err := cache.EncodeSO(cache.SOPayload{Orders: orders})
	if err != nil {
		return err
	}
	key := cache.SOKey(req.BranchID)
	c.commit(ctx, domain.DomainSO, key, map[string][]byte{key: payload})
	return nil
}

// collectWarehouseStock lists items and fetches per-warehouse quantities
// with the narrow stock batch width.
func (c *Coordinator) collectWarehouseStock(ctx context.Context) (domain.WarehouseStockMap, error) {
	refs, err := c.lister(remote.EntityItem, remote.ListParams{PageSize: 100}, nil).Collect(ctx)
	if err != nil {
		return nil, err
	}

	fetcher := remote.NewDetailFetcher(c.api.ItemStock).
		WithRetries(0, c.cfg.DetailBackoffStep)
	runner := remote.NewBatchRunner(fetcher, remote.BatchWidthStock).
		WithRetryPassDelay(c.cfg.RetryPassDelay)

	result, err := runner.Run(ctx, refIDs(refs), func(done, total int) {
		c.setPhase("warehouse-stock", done, total)
	})
	if err != nil {
		return nil, err
	}
	if result.Failed > 0 {
		log.Warn().Int("shortfall", result.Failed).Msg("warehouse stock lookups finished with missing items")
	}

	return aggregate.WarehouseStock(result.Results), nil
}

func (c *Coordinator) collectPOOutstanding(ctx context.Context, req Request, dateFrom, dateTo string) (domain.POOutstandingMap, error) {
	params := remote.ListParams{
		PageSize: 100,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		BranchID: req.BranchID,
	}
	refs, err := c.lister(remote.EntityPurchaseOrder, params, keepOpen).Collect(ctx)
	if err != nil {
		return nil, err
	}

	records, shortfall, err := c.fetchDetails(ctx, remote.EntityPurchaseOrder, "po-outstanding", refIDs(refs), remote.BatchWidthOrders)
	if err != nil {
		return nil, err
	}
	if shortfall > 0 {
		log.Warn().Int("shortfall", shortfall).Msg("purchase order detail fetch finished with missing records")
	}

	return aggregate.POOutstanding(records), nil
}

// fetchDetails batch-fetches record details, reporting progress under the
// caller's phase label so secondary phases are not misreported as "detail".
func (c *Coordinator) fetchDetails(ctx context.Context, entity, phase string, ids []int64, width int) ([]domain.RecordDetail, int, error) {
	fetcher := remote.NewDetailFetcher(func(ctx context.Context, id int64) (*domain.RecordDetail, error) {
		return c.api.Detail(ctx, entity, id)
	}).WithRetries(0, c.cfg.DetailBackoffStep)

	runner := remote.NewBatchRunner(fetcher, width).
		WithRetryPassDelay(c.cfg.RetryPassDelay)

	result, err := runner.Run(ctx, ids, func(done, total int) {
		c.setPhase(phase, done, total)
	})
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.RecordDetail, 0, len(result.Results))
	for _, detail := range result.Results {
		if detail != nil {
			records = append(records, *detail)
		}
	}
	return records, result.Failed, nil
}

func (c *Coordinator) lister(entity string, params remote.ListParams, keep func(domain.RemoteRecordRef) bool) *remote.PagedLister {
	opts := remote.DefaultListerOptions(entity)
	opts.Keep = keep
	fetch := func(ctx context.Context, page int) ([]domain.RemoteRecordRef, error) {
		p := params
		p.Page = page
		return c.api.ListPage(ctx, entity, p)
	}
	return remote.NewPagedLister(entity, fetch, opts)
}

// commit writes all payloads of the finished job. Write failures are logged
// and never roll back the in-memory results; the affected key simply misses
// on the next read and triggers a refetch.
func (c *Coordinator) commit(ctx context.Context, dom domain.SyncDomain, primaryKey string, entries map[string][]byte) {
	failed := 0
	for key, payload := range entries {
		if err := c.store.Put(ctx, key, payload); err != nil {
			log.Error().Err(err).Str("key", key).Msg("cache write failed")
			failed++
		}
	}
	if failed > 0 {
		log.Warn().
			Int("failed", failed).
			Int("total", len(entries)).
			Str("domain", string(dom)).
			Msg("sync committed with partial cache writes")
	}

	if c.archiver != nil {
		date := c.now().UTC().Format("2006-01-02")
		if err := c.archiver.StoreSnapshot(ctx, string(dom), date, entries[primaryKey]); err != nil {
			log.Warn().Err(err).Msg("snapshot archive failed")
		}
	}
}

func (c *Coordinator) dateRange(req Request) (string, string, error) {
	from, err := time.Parse("2006-01-02", c.fromDate(req))
	if err != nil {
		return "", "", fmt.Errorf("invalid sync from date %q: %w", c.fromDate(req), err)
	}
	return from.Format("02/01/2006"), c.now().Format("02/01/2006"), nil
}

func keepOpen(ref domain.RemoteRecordRef) bool {
	return !domain.ParseRecordStatus(ref.StatusName).Excluded()
}

func refIDs(refs []domain.RemoteRecordRef) []int64 {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
