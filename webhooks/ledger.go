package webhooks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusProcessed = "processed"
	DeliveryStatusFailed    = "failed"
)

type DeliveryRecord struct {
	ID         string
	DeliveryID string
	Status     string
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeliveryLedger deduplicates webhook deliveries. Claim returns claimed
// false when the delivery id was seen before; such deliveries are
// acknowledged without reprocessing.
type DeliveryLedger interface {
	Claim(ctx context.Context, deliveryID string, payload []byte) (DeliveryRecord, bool, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, cause error) error
}

// MemoryDeliveryLedger keeps claims in process memory. It serves
// single-process deployments; the sql store covers everything else.
type MemoryDeliveryLedger struct {
	mu      sync.Mutex
	records map[string]*DeliveryRecord
	nowFn   func() time.Time
}

func NewMemoryDeliveryLedger() *MemoryDeliveryLedger {
	return &MemoryDeliveryLedger{
		records: make(map[string]*DeliveryRecord),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryDeliveryLedger) Claim(_ context.Context, deliveryID string, _ []byte) (DeliveryRecord, bool, error) {
	if l == nil {
		return DeliveryRecord{}, false, fmt.Errorf("webhooks: delivery ledger is not configured")
	}
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return DeliveryRecord{}, false, fmt.Errorf("webhooks: delivery id is required for dedupe")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.records[deliveryID]; ok {
		existing.Attempts++
		existing.UpdatedAt = l.nowFn()
		return *existing, false, nil
	}

	now := l.nowFn()
	record := &DeliveryRecord{
		ID:         uuid.NewString(),
		DeliveryID: deliveryID,
		Status:     DeliveryStatusPending,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.records[deliveryID] = record
	return *record, true, nil
}

func (l *MemoryDeliveryLedger) Complete(_ context.Context, id string) error {
	if l == nil {
		return fmt.Errorf("webhooks: delivery ledger is not configured")
	}
	return l.transition(id, DeliveryStatusProcessed, "")
}

func (l *MemoryDeliveryLedger) Fail(_ context.Context, id string, cause error) error {
	if l == nil {
		return fmt.Errorf("webhooks: delivery ledger is not configured")
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return l.transition(id, DeliveryStatusFailed, message)
}

func (l *MemoryDeliveryLedger) transition(id string, status string, lastError string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.records {
		if record.ID == id {
			record.Status = status
			record.LastError = lastError
			record.UpdatedAt = l.nowFn()
			return nil
		}
	}
	return fmt.Errorf("webhooks: delivery record %q not found", id)
}

var _ DeliveryLedger = (*MemoryDeliveryLedger)(nil)
