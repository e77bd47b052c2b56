// Package storage declares the store contracts the core is written
// against. Stores are interface-driven to keep the domain logic testable
// and to allow swapping in-memory or external persistence without rewiring
// business code.
//
// Implementations return pkg/platform/sentinel errors for factual states
// (missing rows, failed preconditions); services translate them into coded
// domain errors.
package storage

import (
	"context"

	"lifedrop/internal/domain"
	id "lifedrop/pkg/domain"
)

type DonorStore interface {
	FindByID(ctx context.Context, donorID id.DonorID) (domain.Donor, error)
	// List returns every donor. Iteration order is the store's own; the
	// matching engine sorts by score and treats store order as the
	// tie-break.
	List(ctx context.Context) ([]domain.Donor, error)
	Save(ctx context.Context, donor domain.Donor) error
	// UpdateIfVersion writes the donor only when the stored version still
	// matches donor.Version, then bumps it. Returns sentinel.ErrConflict
	// when another writer got there first.
	UpdateIfVersion(ctx context.Context, donor domain.Donor) error
}

type RequestStore interface {
	FindByID(ctx context.Context, requestID id.RequestID) (domain.Request, error)
	Save(ctx context.Context, request domain.Request) error
	ListByStatus(ctx context.Context, statuses ...domain.RequestStatus) ([]domain.Request, error)
	ListActive(ctx context.Context) ([]domain.Request, error)
	UpdateIfVersion(ctx context.Context, request domain.Request) error
}

type NotificationStore interface {
	FindByID(ctx context.Context, notificationID id.NotificationID) (domain.Notification, error)
	FindByDonorAndRequest(ctx context.Context, donorID id.DonorID, requestID id.RequestID) (domain.Notification, error)
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.Notification, error)
	ListByDonor(ctx context.Context, donorID id.DonorID) ([]domain.Notification, error)
	// CreateIfAbsent inserts the notification unless one already exists for
	// the same donor/request pair, in which case it returns
	// sentinel.ErrConflict and leaves the store untouched.
	CreateIfAbsent(ctx context.Context, notification domain.Notification) error
	UpdateIfVersion(ctx context.Context, notification domain.Notification) error
}

type LedgerStore interface {
	// Last returns the block with the highest index, or sentinel.ErrNotFound
	// when the chain is empty.
	Last(ctx context.Context) (domain.LedgerBlock, error)
	// Append inserts a write-once block. The index is the uniqueness key:
	// a concurrent append that lost the race gets sentinel.ErrConflict and
	// must re-read the chain head. No update or delete exists.
	Append(ctx context.Context, block domain.LedgerBlock) error
	// ListAll returns the whole chain in index order.
	ListAll(ctx context.Context) ([]domain.LedgerBlock, error)
	// ListByRequest returns the filtered view for one request, in index
	// order. It is a projection of the global chain, not a separate chain.
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.LedgerBlock, error)
}
