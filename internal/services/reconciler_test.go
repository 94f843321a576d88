package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"hogar/internal/core"
	"hogar/internal/log"
	"hogar/internal/storage/memory"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
}

func seedLedger(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.CreateUser(ctx, &core.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}, "hash"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := store.CreateHousehold(ctx, &core.Household{ID: "h1", Name: "Casa", CreatedBy: "u1"}); err != nil {
		t.Fatalf("seed household: %v", err)
	}
	expenses := []core.Expense{
		{ID: "e1", Description: "luz", Amount: decimal.NewFromInt(80), Category: "hogar",
			Date: core.NewDate(2026, 8, 1), Person: "Ana", UserID: "u1", HouseholdID: "h1"},
		{ID: "e2", Description: "cafe", Amount: decimal.NewFromInt(10), Category: "comida",
			Date: core.NewDate(2026, 8, 2), Person: "Ana", UserID: "u1"},
	}
	for i := range expenses {
		if err := store.CreateExpense(ctx, &expenses[i]); err != nil {
			t.Fatalf("seed expense: %v", err)
		}
	}
}

func TestReconcileClearsOrphanedRefs(t *testing.T) {
	store := memory.New()
	seedLedger(t, store)
	r := NewReconciler(store, testLogger(), nil)

	cleared, err := r.Reconcile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}

	e, err := store.GetExpense(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if !e.Personal() {
		t.Errorf("e1 should be personal after reconcile, household = %q", e.HouseholdID)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := memory.New()
	seedLedger(t, store)
	r := NewReconciler(store, testLogger(), nil)

	if _, err := r.Reconcile(context.Background(), "u1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cleared, err := r.Reconcile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if cleared != 0 {
		t.Errorf("second run cleared = %d, want 0", cleared)
	}
}

type recordingObserver struct {
	runs    int
	cleared int64
}

func (o *recordingObserver) ObserveReconcile(cleared int64) {
	o.runs++
	o.cleared += cleared
}

func TestReconcileReportsToObserver(t *testing.T) {
	store := memory.New()
	seedLedger(t, store)
	obs := &recordingObserver{}
	r := NewReconciler(store, testLogger(), obs)

	if _, err := r.Reconcile(context.Background(), "u1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := r.Reconcile(context.Background(), "u1"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if obs.runs != 2 {
		t.Errorf("observer saw %d runs, want 2", obs.runs)
	}
	if obs.cleared != 1 {
		t.Errorf("observer saw %d cleared rows, want 1", obs.cleared)
	}
}

func TestReconcileSkipsCurrentMembers(t *testing.T) {
	store := memory.New()
	seedLedger(t, store)
	ctx := context.Background()
	if err := store.CreateMembership(ctx, &core.Membership{
		ID: "m1", HouseholdID: "h1", UserID: "u1", Role: core.RoleOwner,
	}); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	r := NewReconciler(store, testLogger(), nil)

	cleared, err := r.Reconcile(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != 0 {
		t.Errorf("cleared = %d, want 0 for a current member", cleared)
	}

	e, _ := store.GetExpense(ctx, "e1")
	if e.HouseholdID != "h1" {
		t.Errorf("member's stamped expense must stay stamped, got %q", e.HouseholdID)
	}
}
