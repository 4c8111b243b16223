// Package sqlstore persists the webhook delivery ledger.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-instagram/webhooks"
)

type deliveryRecord struct {
	bun.BaseModel `bun:"table:instagram_webhook_deliveries,alias:iwd"`

	ID         string    `bun:"id,pk"`
	DeliveryID string    `bun:"delivery_id,notnull,unique"`
	Status     string    `bun:"status,notnull"`
	Attempts   int       `bun:"attempts,notnull"`
	LastError  string    `bun:"last_error,nullzero"`
	Payload    []byte    `bun:"payload"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// DeliveryStore is the bun-backed webhooks.DeliveryLedger. Claims race on
// the delivery_id unique constraint instead of a read-then-write check,
// so concurrent deliveries of the same payload dedupe correctly.
type DeliveryStore struct {
	db *bun.DB
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &DeliveryStore{db: db}, nil
}

// ResetModel creates the ledger table when it does not exist yet.
func (s *DeliveryStore) ResetModel(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	_, err := s.db.NewCreateTable().
		Model((*deliveryRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *DeliveryStore) Claim(ctx context.Context, deliveryID string, payload []byte) (webhooks.DeliveryRecord, bool, error) {
	if s == nil || s.db == nil {
		return webhooks.DeliveryRecord{}, false, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return webhooks.DeliveryRecord{}, false, fmt.Errorf("sqlstore: delivery id is required")
	}

	now := time.Now().UTC()
	record := &deliveryRecord{
		ID:         uuid.NewString(),
		DeliveryID: deliveryID,
		Status:     webhooks.DeliveryStatusPending,
		Attempts:   1,
		Payload:    append([]byte(nil), payload...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := s.get(ctx, deliveryID)
			if getErr != nil {
				return webhooks.DeliveryRecord{}, false, getErr
			}
			if _, err := s.db.NewUpdate().
				Model((*deliveryRecord)(nil)).
				Set("attempts = attempts + 1").
				Set("updated_at = ?", now).
				Where("delivery_id = ?", deliveryID).
				Exec(ctx); err != nil {
				return webhooks.DeliveryRecord{}, false, err
			}
			existing.Attempts++
			return existing, false, nil
		}
		return webhooks.DeliveryRecord{}, false, err
	}
	return toDomain(record), true, nil
}

func (s *DeliveryStore) Complete(ctx context.Context, id string) error {
	return s.transition(ctx, id, webhooks.DeliveryStatusProcessed, "")
}

func (s *DeliveryStore) Fail(ctx context.Context, id string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return s.transition(ctx, id, webhooks.DeliveryStatusFailed, message)
}

func (s *DeliveryStore) transition(ctx context.Context, id string, status string, lastError string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: delivery record id is required")
	}

	result, err := s.db.NewUpdate().
		Model((*deliveryRecord)(nil)).
		Set("status = ?", status).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: delivery record %q not found", id)
	}
	return nil
}

func (s *DeliveryStore) get(ctx context.Context, deliveryID string) (webhooks.DeliveryRecord, error) {
	record := new(deliveryRecord)
	err := s.db.NewSelect().
		Model(record).
		Where("delivery_id = ?", deliveryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return webhooks.DeliveryRecord{}, fmt.Errorf("sqlstore: delivery %q not found", deliveryID)
		}
		return webhooks.DeliveryRecord{}, err
	}
	return toDomain(record), nil
}

func toDomain(record *deliveryRecord) webhooks.DeliveryRecord {
	return webhooks.DeliveryRecord{
		ID:         record.ID,
		DeliveryID: record.DeliveryID,
		Status:     record.Status,
		Attempts:   record.Attempts,
		LastError:  record.LastError,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ webhooks.DeliveryLedger = (*DeliveryStore)(nil)
