// Package postgres implements the storage contracts on PostgreSQL. Writes
// rely on row versions and unique constraints rather than explicit locks,
// so concurrent writers resolve races at the database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lifedrop/internal/domain"
	id "lifedrop/pkg/domain"
	"lifedrop/pkg/platform/sentinel"
)

type DonorStore struct {
	db *sql.DB
}

func NewDonorStore(db *sql.DB) *DonorStore {
	return &DonorStore{db: db}
}

const donorColumns = `id, full_name, phone, email, blood_group, lat, lng,
	health_score, last_donation_at, donation_count, is_available,
	cooldown_notice_sent, version`

func (s *DonorStore) FindByID(ctx context.Context, donorID id.DonorID) (domain.Donor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+donorColumns+` FROM donors WHERE id = $1`, donorID.String())
	donor, err := scanDonor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Donor{}, sentinel.ErrNotFound
		}
		return domain.Donor{}, fmt.Errorf("find donor: %w", err)
	}
	return donor, nil
}

func (s *DonorStore) List(ctx context.Context) ([]domain.Donor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+donorColumns+` FROM donors ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	donors := make([]domain.Donor, 0)
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	return donors, nil
}

func (s *DonorStore) Save(ctx context.Context, donor domain.Donor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO donors (id, full_name, phone, email, blood_group, lat, lng,
			health_score, last_donation_at, donation_count, is_available,
			cooldown_notice_sent, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			blood_group = EXCLUDED.blood_group,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			health_score = EXCLUDED.health_score,
			last_donation_at = EXCLUDED.last_donation_at,
			donation_count = EXCLUDED.donation_count,
			is_available = EXCLUDED.is_available,
			cooldown_notice_sent = EXCLUDED.cooldown_notice_sent,
			version = EXCLUDED.version`,
		donor.ID.String(), donor.FullName, donor.Phone, donor.Email,
		donor.BloodGroup.String(), donor.Lat, donor.Lng, donor.HealthScore,
		nullTime(donor.LastDonationAt), donor.DonationCount, donor.IsAvailable,
		donor.CooldownNoticeSent, donor.Version)
	if err != nil {
		return fmt.Errorf("save donor: %w", err)
	}
	return nil
}

func (s *DonorStore) UpdateIfVersion(ctx context.Context, donor domain.Donor) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE donors SET
			full_name = $2, phone = $3, email = $4, blood_group = $5,
			lat = $6, lng = $7, health_score = $8, last_donation_at = $9,
			donation_count = $10, is_available = $11,
			cooldown_notice_sent = $12, version = version + 1
		WHERE id = $1 AND version = $13`,
		donor.ID.String(), donor.FullName, donor.Phone, donor.Email,
		donor.BloodGroup.String(), donor.Lat, donor.Lng, donor.HealthScore,
		nullTime(donor.LastDonationAt), donor.DonationCount, donor.IsAvailable,
		donor.CooldownNoticeSent, donor.Version)
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	return versionedOutcome(ctx, s.db, result,
		`SELECT 1 FROM donors WHERE id = $1`, donor.ID.String())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (domain.Donor, error) {
	var (
		donor         domain.Donor
		donorID       string
		group         string
		lastDonatedAt sql.NullTime
	)
	err := row.Scan(&donorID, &donor.FullName, &donor.Phone, &donor.Email,
		&group, &donor.Lat, &donor.Lng, &donor.HealthScore, &lastDonatedAt,
		&donor.DonationCount, &donor.IsAvailable, &donor.CooldownNoticeSent,
		&donor.Version)
	if err != nil {
		return domain.Donor{}, err
	}
	donor.ID = id.DonorID(donorID)
	donor.BloodGroup = id.BloodGroup(group)
	if lastDonatedAt.Valid {
		t := lastDonatedAt.Time.UTC()
		donor.LastDonationAt = &t
	}
	return donor, nil
}

type RequestStore struct {
	db *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore {
	return &RequestStore{db: db}
}

const requestColumns = `id, requester_id, patient_name, contact_number,
	blood_group, units, urgency, hospital, lat, lng, status, created_at, version`

func (s *RequestStore) FindByID(ctx context.Context, requestID id.RequestID) (domain.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1`, requestID.String())
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Request{}, sentinel.ErrNotFound
		}
		return domain.Request{}, fmt.Errorf("find request: %w", err)
	}
	return request, nil
}

func (s *RequestStore) Save(ctx context.Context, request domain.Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, requester_id, patient_name, contact_number,
			blood_group, units, urgency, hospital, lat, lng, status, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			version = EXCLUDED.version`,
		request.ID.String(), request.RequesterID.String(), request.PatientName,
		request.ContactNumber, request.BloodGroup.String(), request.Units,
		request.Urgency, request.Hospital, request.Lat, request.Lng,
		string(request.Status), request.CreatedAt.UTC(), request.Version)
	if err != nil {
		return fmt.Errorf("save request: %w", err)
	}
	return nil
}

func (s *RequestStore) ListByStatus(ctx context.Context, statuses ...domain.RequestStatus) ([]domain.Request, error) {
	if len(statuses) == 0 {
		return []domain.Request{}, nil
	}
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests
		 WHERE status = ANY($1) ORDER BY created_at, id`, values)
	if err != nil {
		return nil, fmt.Errorf("list requests by status: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *RequestStore) ListActive(ctx context.Context) ([]domain.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests
		 WHERE status <> $1 ORDER BY created_at, id`, string(domain.RequestCompleted))
	if err != nil {
		return nil, fmt.Errorf("list active requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *RequestStore) UpdateIfVersion(ctx context.Context, request domain.Request) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE requests SET status = $2, version = version + 1
		WHERE id = $1 AND version = $3`,
		request.ID.String(), string(request.Status), request.Version)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return versionedOutcome(ctx, s.db, result,
		`SELECT 1 FROM requests WHERE id = $1`, request.ID.String())
}

func collectRequests(rows *sql.Rows) ([]domain.Request, error) {
	requests := make([]domain.Request, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

func scanRequest(row rowScanner) (domain.Request, error) {
	var (
		request     domain.Request
		requestID   string
		requesterID string
		group       string
		status      string
	)
	err := row.Scan(&requestID, &requesterID, &request.PatientName,
		&request.ContactNumber, &group, &request.Units, &request.Urgency,
		&request.Hospital, &request.Lat, &request.Lng, &status,
		&request.CreatedAt, &request.Version)
	if err != nil {
		return domain.Request{}, err
	}
	parsed, err := id.ParseRequestID(requestID)
	if err != nil {
		return domain.Request{}, err
	}
	request.ID = parsed
	request.RequesterID = id.RequesterID(requesterID)
	request.BloodGroup = id.BloodGroup(group)
	request.Status = domain.RequestStatus(status)
	request.CreatedAt = request.CreatedAt.UTC()
	return request, nil
}

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, donor_id, request_id, status, blood_bag_id, created_at, version`

func (s *NotificationStore) FindByID(ctx context.Context, notificationID id.NotificationID) (domain.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`,
		notificationID.String())
	return s.oneNotification(row, "find notification")
}

func (s *NotificationStore) FindByDonorAndRequest(ctx context.Context, donorID id.DonorID, requestID id.RequestID) (domain.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE donor_id = $1 AND request_id = $2`,
		donorID.String(), requestID.String())
	return s.oneNotification(row, "find notification by pair")
}

func (s *NotificationStore) oneNotification(row rowScanner, op string) (domain.Notification, error) {
	notification, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Notification{}, sentinel.ErrNotFound
		}
		return domain.Notification{}, fmt.Errorf("%s: %w", op, err)
	}
	return notification, nil
}

func (s *NotificationStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE request_id = $1 ORDER BY created_at, id`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications by request: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (s *NotificationStore) ListByDonor(ctx context.Context, donorID id.DonorID) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE donor_id = $1 ORDER BY created_at, id`, donorID.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications by donor: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (s *NotificationStore) CreateIfAbsent(ctx context.Context, notification domain.Notification) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, donor_id, request_id, status, blood_bag_id, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (donor_id, request_id) DO NOTHING`,
		notification.ID.String(), notification.DonorID.String(),
		notification.RequestID.String(), string(notification.Status),
		notification.BloodBagID, notification.CreatedAt.UTC(), notification.Version)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *NotificationStore) UpdateIfVersion(ctx context.Context, notification domain.Notification) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, blood_bag_id = $3, version = version + 1
		WHERE id = $1 AND version = $4`,
		notification.ID.String(), string(notification.Status),
		notification.BloodBagID, notification.Version)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return versionedOutcome(ctx, s.db, result,
		`SELECT 1 FROM notifications WHERE id = $1`, notification.ID.String())
}

func collectNotifications(rows *sql.Rows) ([]domain.Notification, error) {
	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func scanNotification(row rowScanner) (domain.Notification, error) {
	var (
		notification   domain.Notification
		notificationID string
		donorID        string
		requestID      string
		status         string
	)
	err := row.Scan(&notificationID, &donorID, &requestID, &status,
		&notification.BloodBagID, &notification.CreatedAt, &notification.Version)
	if err != nil {
		return domain.Notification{}, err
	}
	parsedID, err := id.ParseNotificationID(notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	parsedRequest, err := id.ParseRequestID(requestID)
	if err != nil {
		return domain.Notification{}, err
	}
	notification.ID = parsedID
	notification.DonorID = id.DonorID(donorID)
	notification.RequestID = parsedRequest
	notification.Status = domain.NotificationStatus(status)
	notification.CreatedAt = notification.CreatedAt.UTC()
	return notification, nil
}

// LedgerStore persists the hash chain. Blocks are insert-only; the primary
// key on block_index is the append CAS, so two writers racing on the same
// head resolve without locks.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerColumns = `block_index, request_id, event, data, previous_hash, current_hash, recorded_at`

func (s *LedgerStore) Last(ctx context.Context) (domain.LedgerBlock, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_blocks
		 ORDER BY block_index DESC LIMIT 1`)
	block, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerBlock{}, sentinel.ErrNotFound
		}
		return domain.LedgerBlock{}, fmt.Errorf("last ledger block: %w", err)
	}
	return block, nil
}

func (s *LedgerStore) Append(ctx context.Context, block domain.LedgerBlock) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_blocks (block_index, request_id, event, data,
			previous_hash, current_hash, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (block_index) DO NOTHING`,
		block.Index, block.RequestID.String(), block.Event, []byte(block.Data),
		block.PreviousHash, block.CurrentHash, block.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append ledger block: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *LedgerStore) ListAll(ctx context.Context) ([]domain.LedgerBlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_blocks ORDER BY block_index`)
	if err != nil {
		return nil, fmt.Errorf("list ledger blocks: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func (s *LedgerStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.LedgerBlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_blocks
		 WHERE request_id = $1 ORDER BY block_index`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list ledger blocks by request: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func collectBlocks(rows *sql.Rows) ([]domain.LedgerBlock, error) {
	blocks := make([]domain.LedgerBlock, 0)
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger blocks: %w", err)
	}
	return blocks, nil
}

func scanBlock(row rowScanner) (domain.LedgerBlock, error) {
	var (
		block     domain.LedgerBlock
		requestID string
		data      []byte
	)
	err := row.Scan(&block.Index, &requestID, &block.Event, &data,
		&block.PreviousHash, &block.CurrentHash, &block.Timestamp)
	if err != nil {
		return domain.LedgerBlock{}, err
	}
	parsed, err := id.ParseRequestID(requestID)
	if err != nil {
		return domain.LedgerBlock{}, err
	}
	block.RequestID = parsed
	block.Data = json.RawMessage(data)
	block.Timestamp = block.Timestamp.UTC()
	return block, nil
}

func versionedOutcome(ctx context.Context, db *sql.DB, result sql.Result, existsQuery string, key any) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var one int
	if err := db.QueryRowContext(ctx, existsQuery, key).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("check row: %w", err)
	}
	return sentinel.ErrConflict
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}
