// Package ledger maintains the append-only, hash-chained audit trail of
// lifecycle events. The chain is global: every request's events land on the
// same chain, and per-request history is a filtered read view.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lifedrop/internal/domain"
	"lifedrop/internal/platform/metrics"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/platform/sentinel"
	"lifedrop/pkg/requestcontext"
)

// maxAppendAttempts bounds how often an append re-reads the chain head
// after losing an index race to a writer in another process.
const maxAppendAttempts = 5

type Store interface {
	Last(ctx context.Context) (domain.LedgerBlock, error)
	Append(ctx context.Context, block domain.LedgerBlock) error
	ListAll(ctx context.Context) ([]domain.LedgerBlock, error)
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.LedgerBlock, error)
}

// Service serializes appends in-process with a mutex; the store's index
// uniqueness resolves races with other processes.
type Service struct {
	mu      sync.Mutex
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("lifedrop/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records one event on the chain. The payload is marshalled to JSON
// and becomes part of the hash input, so it is immutable once written.
func (s *Service) Append(ctx context.Context, requestID id.RequestID, event string, payload any) (domain.LedgerBlock, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.append",
		trace.WithAttributes(
			attribute.String("request.id", requestID.String()),
			attribute.String("ledger.event", event),
		),
	)
	defer span.End()

	data, err := json.Marshal(payload)
	if err != nil {
		return domain.LedgerBlock{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode ledger payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Postgres keeps microseconds; hashing anything finer would break
	// verification after a round-trip.
	ts := requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		index, previousHash, err := s.chainHead(ctx)
		if err != nil {
			return domain.LedgerBlock{}, err
		}

		block := domain.LedgerBlock{
			Index:        index,
			RequestID:    requestID,
			Event:        event,
			Data:         data,
			PreviousHash: previousHash,
			Timestamp:    ts,
		}
		block.CurrentHash = domain.ComputeBlockHash(block.Index, block.PreviousHash, block.Timestamp, block.Data)

		err = s.store.Append(ctx, block)
		if err == nil {
			span.SetAttributes(attribute.Int64("block.index", block.Index))
			s.metrics.IncLedgerAppends()
			s.logger.InfoContext(ctx, "ledger block appended",
				"index", block.Index,
				"event", event,
				"request_id", requestID.String(),
			)
			return block, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			span.AddEvent("append.retry", trace.WithAttributes(
				attribute.Int64("lost.index", block.Index),
			))
			s.metrics.IncLedgerAppendRetries()
			continue
		}
		return domain.LedgerBlock{}, dErrors.Wrap(err, dErrors.CodeInternal, "append ledger block")
	}

	span.SetAttributes(attribute.Bool("append.exhausted", true))
	return domain.LedgerBlock{}, dErrors.New(dErrors.CodeConflict, "ledger append kept losing the index race")
}

func (s *Service) chainHead(ctx context.Context) (int64, string, error) {
	last, err := s.store.Last(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 1, domain.GenesisHash, nil
		}
		return 0, "", dErrors.Wrap(err, dErrors.CodeInternal, "read chain head")
	}
	return last.Index + 1, last.CurrentHash, nil
}

// ReadChain returns the whole chain in index order.
func (s *Service) ReadChain(ctx context.Context) ([]domain.LedgerBlock, error) {
	blocks, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger chain")
	}
	return blocks, nil
}

// ReadRequestTrail returns the chain filtered to one request's events.
func (s *Service) ReadRequestTrail(ctx context.Context, requestID id.RequestID) ([]domain.LedgerBlock, error) {
	blocks, err := s.store.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read request trail")
	}
	return blocks, nil
}

// Verify replays the chain from the first block and returns its length.
// Any broken invariant surfaces as a CodeIntegrityViolation error naming
// the first bad index.
func (s *Service) Verify(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.verify")
	defer span.End()

	blocks, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger chain")
	}

	previousHash := domain.GenesisHash
	for i, block := range blocks {
		wantIndex := int64(i + 1)
		switch {
		case block.Index != wantIndex:
			return 0, s.integrityFailure(span, wantIndex, "index gap in chain")
		case block.PreviousHash != previousHash:
			return 0, s.integrityFailure(span, block.Index, "previous hash does not match predecessor")
		case !block.Verify():
			return 0, s.integrityFailure(span, block.Index, "block hash does not match contents")
		}
		previousHash = block.CurrentHash
	}

	span.SetAttributes(attribute.Int("chain.length", len(blocks)))
	return len(blocks), nil
}

func (s *Service) integrityFailure(span trace.Span, index int64, reason string) error {
	span.SetAttributes(
		attribute.Bool("chain.broken", true),
		attribute.Int64("broken.index", index),
	)
	return dErrors.New(dErrors.CodeIntegrityViolation,
		fmt.Sprintf("ledger integrity violation at block %d: %s", index, reason))
}
