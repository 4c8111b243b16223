package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"

	sqlstore "github.com/goliatone/go-instagram/store/sql"
	"github.com/goliatone/go-instagram/webhooks"
)

func newDeliveryStore(t *testing.T) (*sqlstore.DeliveryStore, func()) {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	store, err := sqlstore.NewDeliveryStore(db)
	if err != nil {
		t.Fatalf("new delivery store: %v", err)
	}
	if err := store.ResetModel(context.Background()); err != nil {
		t.Fatalf("reset model: %v", err)
	}
	return store, func() { _ = db.Close() }
}

func TestDeliveryStore_ClaimOnceThenDedupe(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newDeliveryStore(t)
	defer cleanup()

	record, claimed, err := store.Claim(ctx, "sha256=abc123", []byte(`{"object":"instagram"}`))
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to succeed")
	}
	if record.Status != webhooks.DeliveryStatusPending {
		t.Fatalf("expected pending status, got %q", record.Status)
	}
	if record.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", record.Attempts)
	}

	duplicate, claimed, err := store.Claim(ctx, "sha256=abc123", []byte(`{"object":"instagram"}`))
	if err != nil {
		t.Fatalf("duplicate claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected duplicate claim to be rejected")
	}
	if duplicate.ID != record.ID {
		t.Fatalf("expected same record id, got %q and %q", record.ID, duplicate.ID)
	}
	if duplicate.Attempts != 2 {
		t.Fatalf("expected 2 attempts after duplicate, got %d", duplicate.Attempts)
	}
}

func TestDeliveryStore_CompleteAndFailTransitions(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newDeliveryStore(t)
	defer cleanup()

	first, claimed, err := store.Claim(ctx, "delivery-complete", nil)
	if err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.Complete(ctx, first.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	second, claimed, err := store.Claim(ctx, "delivery-fail", nil)
	if err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if err := store.Fail(ctx, second.ID, fmt.Errorf("payload decode failed")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	completed, claimed, err := store.Claim(ctx, "delivery-complete", nil)
	if err != nil || claimed {
		t.Fatalf("re-claim: claimed=%v err=%v", claimed, err)
	}
	if completed.Status != webhooks.DeliveryStatusProcessed {
		t.Fatalf("expected processed status, got %q", completed.Status)
	}

	failed, claimed, err := store.Claim(ctx, "delivery-fail", nil)
	if err != nil || claimed {
		t.Fatalf("re-claim: claimed=%v err=%v", claimed, err)
	}
	if failed.Status != webhooks.DeliveryStatusFailed {
		t.Fatalf("expected failed status, got %q", failed.Status)
	}
	if failed.LastError != "payload decode failed" {
		t.Fatalf("expected last error recorded, got %q", failed.LastError)
	}
}

func TestDeliveryStore_RejectsMissingIdentifiers(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newDeliveryStore(t)
	defer cleanup()

	if _, _, err := store.Claim(ctx, "   ", nil); err == nil {
		t.Fatalf("expected error for blank delivery id")
	}
	if err := store.Complete(ctx, ""); err == nil {
		t.Fatalf("expected error for blank record id")
	}
	if err := store.Complete(ctx, "missing-record"); err == nil {
		t.Fatalf("expected error for unknown record id")
	}
}
