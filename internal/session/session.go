// Package session owns the mutable valuation state for the service: the
// cached raw rows, the active policy, and the filter/sort state. One
// valuation run executes at a time; overlapping triggers are rejected.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Jsharifz/Reprocess-King/internal/events"
	"github.com/Jsharifz/Reprocess-King/internal/market"
	"github.com/Jsharifz/Reprocess-King/internal/obs"
	"github.com/Jsharifz/Reprocess-King/internal/parse"
	"github.com/Jsharifz/Reprocess-King/internal/sde"
	"github.com/Jsharifz/Reprocess-King/internal/valuation"
	"github.com/Jsharifz/Reprocess-King/internal/view"
)

// Run states. The gate flips Idle to Resolving atomically; any non-Idle
// state rejects a new run.
const (
	StateIdle int32 = iota
	StateResolving
	StatePricing
	StateComputing
)

// ErrBusy indicates a valuation run is already in flight.
var ErrBusy = errors.New("valuation already in progress")

// ErrNoRows indicates a recompute or view was requested before any
// successful run.
var ErrNoRows = errors.New("no valuation to work from")

// ErrCatalogUnavailable marks a failed catalog load; no valuation can
// proceed until a load succeeds.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ErrMarketUnavailable marks a failed or stale price fetch; the run is lost
// but the session can be retried.
var ErrMarketUnavailable = errors.New("market data unavailable")

// Messages for empty-result states. These are not errors.
const (
	MsgEmptyInput = "no items entered"
	MsgNoItems    = "no valid items found"
)

// CatalogSource supplies the loaded catalog index.
type CatalogSource interface {
	Load(ctx context.Context) (*sde.Index, error)
}

// PriceSource supplies fresh quotes for a set of type ids.
type PriceSource interface {
	Fetch(ctx context.Context, ids []int64) (map[int64]market.Quote, error)
}

// Session orchestrates the valuation pipeline and retains its results.
type Session struct {
	Catalog CatalogSource
	Prices  PriceSource
	Bus     *events.Bus
	Logger  zerolog.Logger

	state atomic.Int32

	mu      sync.Mutex
	raws    []valuation.RawRow
	rows    []valuation.Row
	policy  valuation.Policy
	filters view.Filters
	sort    view.Sort
	message string
}

// NewSession constructs a session with the default sort order.
func NewSession(catalog CatalogSource, prices PriceSource, bus *events.Bus, logger zerolog.Logger) *Session {
	return &Session{
		Catalog: catalog,
		Prices:  prices,
		Bus:     bus,
		Logger:  logger,
		sort:    view.DefaultSort(),
	}
}

// Result is a snapshot of the session after a run, recompute, or view.
type Result struct {
	RunID     uuid.UUID                 `json:"runId,omitempty"`
	Rows      []valuation.Row           `json:"rows"`
	Totals    view.TotalsRow            `json:"totals"`
	Breakdown []valuation.BreakdownLine `json:"breakdown"`
	Policy    valuation.Policy          `json:"policy"`
	Filters   view.Filters              `json:"filters"`
	Sort      view.Sort                 `json:"sort"`
	Message   string                    `json:"message,omitempty"`
}

// Run executes the full pipeline: parse, resolve, price, compute. A second
// call while one is in flight fails with ErrBusy without queuing. Any fatal
// failure clears the retained rows; the gate is always released.
func (s *Session) Run(ctx context.Context, input string, policy valuation.Policy, filters view.Filters) (Result, error) {
	if !s.state.CompareAndSwap(StateIdle, StateResolving) {
		return Result{}, ErrBusy
	}
	defer s.state.Store(StateIdle)

	runID := uuid.New()
	start := time.Now()
	logger := s.Logger.With().Stringer("run_id", runID).Logger()

	entries := parse.Lines(input)
	if len(entries) == 0 {
		s.storeEmpty(policy, filters, MsgEmptyInput)
		recordRun("empty", start, 0)
		return s.snapshot(runID), nil
	}

	idx, err := s.Catalog.Load(ctx)
	if err != nil {
		s.clearRows()
		recordRun("error", start, 0)
		s.emit(ctx, events.TopicValuationFailed, runID, map[string]any{"stage": "catalog", "error": err.Error()})
		return Result{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	items, ids := valuation.Resolve(entries, idx)
	if len(items) == 0 {
		s.storeEmpty(policy, filters, MsgNoItems)
		recordRun("empty", start, 0)
		return s.snapshot(runID), nil
	}

	s.state.Store(StatePricing)
	quotes, err := s.Prices.Fetch(ctx, ids)
	if err != nil {
		s.clearRows()
		recordRun("error", start, 0)
		s.emit(ctx, events.TopicValuationFailed, runID, map[string]any{"stage": "pricing", "error": err.Error()})
		return Result{}, fmt.Errorf("%w: %w", ErrMarketUnavailable, err)
	}

	s.state.Store(StateComputing)
	raws := valuation.BuildRaw(items, quotes, policy.Side, idx)
	rows := valuation.Compute(raws, policy)

	s.mu.Lock()
	s.raws = raws
	s.rows = rows
	s.policy = policy
	s.filters = filters
	s.message = ""
	s.mu.Unlock()

	recordRun("ok", start, len(rows))
	logger.Info().
		Int("items", len(items)).
		Int("priced_ids", len(ids)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("valuation_completed")
	s.emit(ctx, events.TopicValuationCompleted, runID, map[string]any{"rows": len(rows)})

	return s.snapshot(runID), nil
}

// Recompute re-runs the policy-dependent steps over the cached raw rows
// without refetching prices. The trade side is fixed by the original run;
// changing it requires a fresh Run.
func (s *Session) Recompute(recovery, taxRate float64, taxMode valuation.TaxMode) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raws == nil {
		return Result{}, ErrNoRows
	}

	policy := s.policy
	policy.Recovery = recovery
	policy.TaxRate = taxRate
	policy.TaxMode = taxMode
	if err := policy.Validate(); err != nil {
		return Result{}, err
	}

	s.policy = policy
	s.rows = valuation.Compute(s.raws, policy)
	return s.snapshotLocked(uuid.Nil), nil
}

// View returns the current rows under the given filters, optionally
// advancing the sort state by a selected column. An explicit direction
// pins the sort; without one, re-selecting the active column flips it.
// View never mutates the retained rows.
func (s *Session) View(filters *view.Filters, sortColumn, dir string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil && s.message == "" {
		return Result{}, ErrNoRows
	}
	if filters != nil {
		s.filters = *filters
	}
	switch {
	case sortColumn != "" && dir != "":
		s.sort = view.Sort{Column: sortColumn, Dir: dir}
	case sortColumn != "":
		s.sort = view.NextSort(s.sort, sortColumn)
	}
	return s.snapshotLocked(uuid.Nil), nil
}

// State reports the current pipeline stage.
func (s *Session) State() int32 {
	return s.state.Load()
}

// CurrentPolicy returns the policy of the most recent run.
func (s *Session) CurrentPolicy() valuation.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// CurrentFilters returns the active filter state.
func (s *Session) CurrentFilters() view.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *Session) snapshot(runID uuid.UUID) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(runID)
}

func (s *Session) snapshotLocked(runID uuid.UUID) Result {
	visible := view.Apply(s.rows, s.filters, s.sort)
	return Result{
		RunID:     runID,
		Rows:      visible,
		Totals:    view.Totals(visible),
		Breakdown: view.MergeBreakdown(visible),
		Policy:    s.policy,
		Filters:   s.filters,
		Sort:      s.sort,
		Message:   s.message,
	}
}

func (s *Session) storeEmpty(policy valuation.Policy, filters view.Filters, message string) {
	s.mu.Lock()
	s.raws = nil
	s.rows = []valuation.Row{}
	s.policy = policy
	s.filters = filters
	s.message = message
	s.mu.Unlock()
}

func (s *Session) clearRows() {
	s.mu.Lock()
	s.raws = nil
	s.rows = nil
	s.message = ""
	s.mu.Unlock()
}

func (s *Session) emit(ctx context.Context, topic string, runID uuid.UUID, payload map[string]any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, runID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func recordRun(result string, start time.Time, rows int) {
	if obs.ValuationRunsTotal != nil {
		obs.ValuationRunsTotal.WithLabelValues(result).Inc()
	}
	if obs.ValuationRunDuration != nil {
		obs.ValuationRunDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	if result == "ok" && obs.ValuationRowsLast != nil {
		obs.ValuationRowsLast.Set(float64(rows))
	}
}
