// Package memory provides in-memory store implementations. They keep the
// initial deployment lightweight and testable and intentionally favor
// clarity over performance.
package memory

import (
	"context"
	"sort"
	"sync"

	"lifedrop/internal/domain"
	id "lifedrop/pkg/domain"
	"lifedrop/pkg/platform/sentinel"
)

type DonorStore struct {
	mu     sync.RWMutex
	donors map[id.DonorID]domain.Donor
	order  []id.DonorID
}

func NewDonorStore() *DonorStore {
	return &DonorStore{donors: make(map[id.DonorID]domain.Donor)}
}

func (s *DonorStore) FindByID(_ context.Context, donorID id.DonorID) (domain.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.donors[donorID]; ok {
		return d, nil
	}
	return domain.Donor{}, sentinel.ErrNotFound
}

// List returns donors in insertion order so score ties break
// deterministically in tests.
func (s *DonorStore) List(_ context.Context) ([]domain.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Donor, 0, len(s.order))
	for _, donorID := range s.order {
		out = append(out, s.donors[donorID])
	}
	return out, nil
}

func (s *DonorStore) Save(_ context.Context, donor domain.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donor.ID]; !ok {
		s.order = append(s.order, donor.ID)
	}
	s.donors[donor.ID] = donor
	return nil
}

func (s *DonorStore) UpdateIfVersion(_ context.Context, donor domain.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.donors[donor.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != donor.Version {
		return sentinel.ErrConflict
	}
	donor.Version++
	s.donors[donor.ID] = donor
	return nil
}

type RequestStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]domain.Request
	order    []id.RequestID
}

func NewRequestStore() *RequestStore {
	return &RequestStore{requests: make(map[id.RequestID]domain.Request)}
}

func (s *RequestStore) FindByID(_ context.Context, requestID id.RequestID) (domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.requests[requestID]; ok {
		return r, nil
	}
	return domain.Request{}, sentinel.ErrNotFound
}

func (s *RequestStore) Save(_ context.Context, request domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; !ok {
		s.order = append(s.order, request.ID)
	}
	s.requests[request.ID] = request
	return nil
}

func (s *RequestStore) ListByStatus(_ context.Context, statuses ...domain.RequestStatus) ([]domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Request
	for _, requestID := range s.order {
		r := s.requests[requestID]
		for _, status := range statuses {
			if r.Status == status {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (s *RequestStore) ListActive(_ context.Context) ([]domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Request
	for _, requestID := range s.order {
		if r := s.requests[requestID]; !r.Status.Terminal() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *RequestStore) UpdateIfVersion(_ context.Context, request domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[request.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != request.Version {
		return sentinel.ErrConflict
	}
	request.Version++
	s.requests[request.ID] = request
	return nil
}

type pairKey struct {
	donor   id.DonorID
	request id.RequestID
}

type NotificationStore struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]domain.Notification
	byPair        map[pairKey]id.NotificationID
	order         []id.NotificationID
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		notifications: make(map[id.NotificationID]domain.Notification),
		byPair:        make(map[pairKey]id.NotificationID),
	}
}

func (s *NotificationStore) FindByID(_ context.Context, notificationID id.NotificationID) (domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.notifications[notificationID]; ok {
		return n, nil
	}
	return domain.Notification{}, sentinel.ErrNotFound
}

func (s *NotificationStore) FindByDonorAndRequest(_ context.Context, donorID id.DonorID, requestID id.RequestID) (domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if notificationID, ok := s.byPair[pairKey{donorID, requestID}]; ok {
		return s.notifications[notificationID], nil
	}
	return domain.Notification{}, sentinel.ErrNotFound
}

func (s *NotificationStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Notification
	for _, notificationID := range s.order {
		if n := s.notifications[notificationID]; n.RequestID == requestID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NotificationStore) ListByDonor(_ context.Context, donorID id.DonorID) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Notification
	for _, notificationID := range s.order {
		if n := s.notifications[notificationID]; n.DonorID == donorID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NotificationStore) CreateIfAbsent(_ context.Context, notification domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{notification.DonorID, notification.RequestID}
	if _, ok := s.byPair[key]; ok {
		return sentinel.ErrConflict
	}
	s.byPair[key] = notification.ID
	s.notifications[notification.ID] = notification
	s.order = append(s.order, notification.ID)
	return nil
}

func (s *NotificationStore) UpdateIfVersion(_ context.Context, notification domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.notifications[notification.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != notification.Version {
		return sentinel.ErrConflict
	}
	notification.Version++
	s.notifications[notification.ID] = notification
	return nil
}

// LedgerStore keeps the chain as an ordered slice; blocks are write-once
// and the index is the uniqueness key.
type LedgerStore struct {
	mu     sync.RWMutex
	blocks []domain.LedgerBlock
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

func (s *LedgerStore) Last(_ context.Context) (domain.LedgerBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return domain.LedgerBlock{}, sentinel.ErrNotFound
	}
	return s.blocks[len(s.blocks)-1], nil
}

func (s *LedgerStore) Append(_ context.Context, block domain.LedgerBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int64(len(s.blocks))+1 != block.Index {
		return sentinel.ErrConflict
	}
	s.blocks = append(s.blocks, block)
	return nil
}

func (s *LedgerStore) ListAll(_ context.Context) ([]domain.LedgerBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LedgerBlock, len(s.blocks))
	copy(out, s.blocks)
	return out, nil
}

func (s *LedgerStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]domain.LedgerBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LedgerBlock
	for _, b := range s.blocks {
		if b.RequestID == requestID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Tamper overwrites a stored block in place. It exists only so integrity
// tests can corrupt the chain; production code has no path to it.
func (s *LedgerStore) Tamper(index int64, mutate func(*domain.LedgerBlock)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.blocks {
		if s.blocks[i].Index == index {
			mutate(&s.blocks[i])
			return true
		}
	}
	return false
}
