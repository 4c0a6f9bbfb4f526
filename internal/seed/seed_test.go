package seed

import (
	"context"
	"testing"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage/memory"
)

func TestRun(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC)

	if err := Run(ctx, store, now, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	categories, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 4 {
		t.Fatalf("expected four categories, got %d", len(categories))
	}

	u, err := store.GetUserByLogin(ctx, "john_doe")
	if err != nil {
		t.Fatalf("seeded user missing: %v", err)
	}
	if !auth.CheckPassword(DemoPassword, u.PasswordHash) {
		t.Fatalf("demo password does not verify")
	}

	credits, err := store.ListCreditsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list credits: %v", err)
	}
	if len(credits) != 2 {
		t.Fatalf("expected two credits, got %d", len(credits))
	}
	// One closed, one open per user.
	var open, closed int
	for _, c := range credits {
		if c.Closed() {
			closed++
		} else {
			open++
		}
	}
	if open != 1 || closed != 1 {
		t.Fatalf("expected one open and one closed credit, got open=%d closed=%d", open, closed)
	}

	payments, err := store.ListPaymentsByCredit(ctx, credits[0].ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("expected three payments, got %d", len(payments))
	}

	plans, err := store.ListPlansByPeriod(ctx, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 4 {
		t.Fatalf("expected a plan per category, got %d", len(plans))
	}
}
