package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gomarketplace/cartstore/internal/domain"
	"github.com/gomarketplace/cartstore/internal/metrics"
	"github.com/gomarketplace/cartstore/internal/repository"
	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/logger"
	"github.com/gomarketplace/cartstore/pkg/tracing"
)

// Operation names used in spans, logs and metrics.
const (
	OpLoad      = "load"
	OpAdd       = "add"
	OpIncrement = "increment"
	OpDecrement = "decrement"
)

// Snapshot is an immutable view of the cart at one version.
type Snapshot struct {
	Version uint64
	Items   domain.Items
}

// ItemCount returns the total quantity across all lines.
func (s Snapshot) ItemCount() int {
	return s.Items.ItemCount()
}

type state struct {
	snap    Snapshot
	changed chan struct{}
}

// Store is the cart state container. It holds the ordered item list in
// memory and mirrors it to a repository on every mutation.
//
// Mutations are serialized and hold the lock across the repository write.
// Reads never block: they return the snapshot installed by the last applied
// change. Every applied change installs a fresh Items slice, so callers may
// compare slices by identity to detect change, and must not modify them.
type Store struct {
	repo        repository.CartRepository
	logger      *slog.Logger
	persistMode PersistMode
	matchMode   MatchMode
	publisher   Publisher
	metrics     Recorder
	tracer      trace.Tracer

	mu    sync.Mutex
	state atomic.Pointer[state]

	lifeMu     sync.Mutex
	opened     atomic.Bool
	closed     atomic.Bool
	ready      chan struct{}
	cancelLoad context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an empty store backed by repo. Call Open to load the
// persisted cart.
func New(repo repository.CartRepository, log *slog.Logger, opts ...Option) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		repo:        repo,
		logger:      log,
		persistMode: PersistStrict,
		matchMode:   MatchByID,
		publisher:   noopPublisher{},
		metrics:     noopRecorder{},
		tracer:      tracing.Tracer("cart"),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&state{
		snap:    Snapshot{Items: domain.Items{}},
		changed: make(chan struct{}),
	})
	return s
}

// Open starts loading the persisted cart in the background and returns
// immediately. Until the load finishes, reads see an empty cart and
// mutations wait for it. Mutations before Open fail with a usage error. ctx bounds the load. A failed or corrupt load is
// logged and leaves the cart empty. Calling Open again, or after Close, does
// nothing.
func (s *Store) Open(ctx context.Context) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.opened.Load() || s.closed.Load() {
		return
	}
	s.opened.Store(true)

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.load(loadCtx)
	}()
}

// Ready is closed once the initial load has finished, successfully or not.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until the initial load has finished or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether the initial load has finished.
func (s *Store) Loaded() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Close ends the store's provisioning scope. A pending load is canceled and
// waited for. Later mutations and FromContext lookups fail with a usage
// error.
func (s *Store) Close() {
	s.lifeMu.Lock()
	if s.closed.Swap(true) {
		s.lifeMu.Unlock()
		return
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	if !s.opened.Load() {
		close(s.ready)
	}
	s.lifeMu.Unlock()

	s.wg.Wait()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	return s.closed.Load()
}

// Products returns the current item list. The slice is shared; treat it as
// read-only.
func (s *Store) Products() domain.Items {
	return s.state.Load().snap.Items
}

// Snapshot returns the current items together with their version.
func (s *Store) Snapshot() Snapshot {
	return s.state.Load().snap
}

// Changed returns a channel that is closed by the next applied change.
func (s *Store) Changed() <-chan struct{} {
	return s.state.Load().changed
}

// ItemCount returns the total quantity across all lines.
func (s *Store) ItemCount() int {
	return s.Products().ItemCount()
}

// Ping checks that the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// AddToCart adds item to the cart. An item already present, as decided by
// the store's MatchMode, has its quantity increased by one; otherwise item
// is appended. A zero quantity is treated as one.
func (s *Store) AddToCart(ctx context.Context, item domain.CartItem) error {
	if item.Quantity == 0 {
		item.Quantity = 1
	}

	return s.mutate(ctx, OpAdd, item.ID, func(items domain.Items) (domain.Items, error) {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		idx := s.match(items, item)
		if idx < 0 {
			return items.WithAppended(item), nil
		}
		return items.WithQuantity(idx, items[idx].Quantity+1), nil
	})
}

// Increment raises the quantity of the line with the given id by one. A
// missing id is reported as a not-found error and nothing is written.
func (s *Store) Increment(ctx context.Context, id string) error {
	return s.mutate(ctx, OpIncrement, id, func(items domain.Items) (domain.Items, error) {
		idx := items.IndexByID(id)
		if idx < 0 {
			return nil, apperrors.NotFound("cart item", id)
		}
		return items.WithQuantity(idx, items[idx].Quantity+1), nil
	})
}

// Decrement lowers the quantity of the line with the given id by one,
// removing the line when its quantity was one. A missing id is reported as a
// not-found error and nothing is written.
func (s *Store) Decrement(ctx context.Context, id string) error {
	return s.mutate(ctx, OpDecrement, id, func(items domain.Items) (domain.Items, error) {
		idx := items.IndexByID(id)
		if idx < 0 {
			return nil, apperrors.NotFound("cart item", id)
		}
		if items[idx].Quantity <= 1 {
			return items.WithoutIndex(idx), nil
		}
		return items.WithQuantity(idx, items[idx].Quantity-1), nil
	})
}

func (s *Store) match(items domain.Items, item domain.CartItem) int {
	if s.matchMode == MatchByValue {
		return items.IndexOf(item)
	}
	return items.IndexByID(item.ID)
}

func (s *Store) mutate(ctx context.Context, op, itemID string, fn func(domain.Items) (domain.Items, error)) error {
	ctx, span := s.tracer.Start(ctx, "cart."+op, trace.WithAttributes(
		attribute.String("cart.item_id", itemID),
		attribute.String("cart.persist_mode", s.persistMode.String()),
	))
	defer span.End()

	snap, persistErr, err := s.apply(ctx, op, fn)
	if err != nil {
		s.metrics.ObserveOperation(op, resultOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	result := metrics.ResultOK
	if persistErr != nil {
		result = metrics.ResultPersistError
		span.RecordError(persistErr)
	}
	s.metrics.ObserveOperation(op, result)
	span.SetAttributes(attribute.Int64("cart.version", int64(snap.Version)))

	if err := s.publisher.PublishCartUpdated(ctx, snap.Version, snap.Items); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to publish cart update",
			slog.String("operation", op),
			slog.Uint64("version", snap.Version),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// apply runs fn against the current items and installs the result. In
// best-effort mode a failed write is returned as persistErr alongside the
// installed snapshot.
func (s *Store) apply(ctx context.Context, op string, fn func(domain.Items) (domain.Items, error)) (snap Snapshot, persistErr, err error) {
	if s.closed.Load() {
		return Snapshot{}, nil, errOutsideScope()
	}
	if !s.opened.Load() {
		return Snapshot{}, nil, errNotOpened()
	}
	select {
	case <-s.ready:
	case <-ctx.Done():
		return Snapshot{}, nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return Snapshot{}, nil, errOutsideScope()
	}

	next, err := fn(s.state.Load().snap.Items)
	if err != nil {
		return Snapshot{}, nil, err
	}

	start := time.Now()
	saveErr := s.repo.Save(ctx, next)
	s.metrics.ObservePersist(time.Since(start))

	if saveErr != nil {
		log := logger.WithContext(ctx, s.logger)
		if s.persistMode == PersistStrict {
			log.ErrorContext(ctx, "cart write failed, change discarded",
				slog.String("operation", op),
				slog.String("error", saveErr.Error()),
			)
			return Snapshot{}, nil, apperrors.Persistence("save cart", saveErr)
		}
		log.WarnContext(ctx, "cart write failed, change kept in memory only",
			slog.String("operation", op),
			slog.String("error", saveErr.Error()),
		)
		persistErr = saveErr
	}

	return s.install(next), persistErr, nil
}

// install publishes items as the next snapshot. s.mu must be held.
func (s *Store) install(items domain.Items) Snapshot {
	prev := s.state.Load()
	next := &state{
		snap:    Snapshot{Version: prev.snap.Version + 1, Items: items},
		changed: make(chan struct{}),
	}
	s.state.Store(next)
	close(prev.changed)

	s.metrics.SetContents(len(items), items.ItemCount())
	return next.snap
}

func (s *Store) load(ctx context.Context) {
	defer close(s.ready)

	ctx, span := s.tracer.Start(ctx, "cart."+OpLoad)
	defer span.End()
	log := logger.WithContext(ctx, s.logger)

	items, found, err := s.repo.Load(ctx)
	if err != nil {
		s.metrics.ObserveOperation(OpLoad, metrics.ResultPersistError)
		span.RecordError(err)
		log.WarnContext(ctx, "failed to load persisted cart, starting empty",
			slog.String("error", err.Error()),
		)
		return
	}
	if !found {
		s.metrics.ObserveOperation(OpLoad, metrics.ResultOK)
		log.DebugContext(ctx, "no persisted cart found")
		return
	}

	if s.matchMode == MatchByID && items.HasDuplicateIDs() {
		log.WarnContext(ctx, "persisted cart contains duplicate ids",
			slog.Int("lines", len(items)),
		)
	}

	s.mu.Lock()
	snap := s.install(items.Clone())
	s.mu.Unlock()

	s.metrics.ObserveOperation(OpLoad, metrics.ResultOK)
	span.SetAttributes(attribute.Int("cart.lines", len(snap.Items)))
	log.InfoContext(ctx, "cart loaded",
		slog.Int("lines", len(snap.Items)),
		slog.Int("item_count", snap.ItemCount()),
	)
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return metrics.ResultInvalid
	case errors.Is(err, apperrors.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, apperrors.ErrPersistence):
		return metrics.ResultPersistError
	case errors.Is(err, apperrors.ErrUsage):
		return metrics.ResultUsage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultError
	}
}
