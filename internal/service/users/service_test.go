package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/credit"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/plans"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage/memory"
)

func newService(store *memory.Store) *Service {
	reporter := plans.New(store, store, store, store, nil)
	return New(store, store, reporter, nil)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestService_CreateAndGet(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, err := svc.Create(ctx, "  alice  ", "s3cret-pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Login != "alice" {
		t.Fatalf("login not trimmed: %q", u.Login)
	}
	if !auth.CheckPassword("s3cret-pass", u.PasswordHash) {
		t.Fatalf("password not hashed correctly")
	}
	if u.RegistrationDate.IsZero() {
		t.Fatalf("registration date not set")
	}

	got, err := svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Login != "alice" {
		t.Fatalf("unexpected login: %q", got.Login)
	}

	byLogin, err := svc.GetByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("get by login: %v", err)
	}
	if byLogin.ID != u.ID {
		t.Fatalf("unexpected user: %d", byLogin.ID)
	}
}

func TestService_CreateDuplicate(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "pass"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "alice", "pass"); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()

	for _, login := range []string{"alice", "bob", "carol"} {
		if _, err := svc.Create(ctx, login, "pass"); err != nil {
			t.Fatalf("create %s: %v", login, err)
		}
	}

	all, err := svc.List(ctx, user.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected three users, got %d", len(all))
	}

	page, err := svc.List(ctx, user.Filter{Skip: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected one user, got %d", len(page))
	}

	if _, err := svc.List(ctx, user.Filter{Skip: -1}); err == nil {
		t.Fatalf("negative skip accepted")
	}
}

func TestService_Update(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()

	u, err := svc.Create(ctx, "alice", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := svc.Create(ctx, "bob", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, u.ID, "alice2", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Login != "alice2" {
		t.Fatalf("login not updated: %q", updated.Login)
	}
	if updated.PasswordHash != u.PasswordHash {
		t.Fatalf("password changed without a new one")
	}

	updated, err = svc.Update(ctx, u.ID, "alice2", "new-pass")
	if err != nil {
		t.Fatalf("update with password: %v", err)
	}
	if !auth.CheckPassword("new-pass", updated.PasswordHash) {
		t.Fatalf("new password not applied")
	}

	if _, err := svc.Update(ctx, u.ID, other.Login, ""); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
	if _, err := svc.Update(ctx, 9999, "ghost", ""); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()

	u, err := svc.Create(ctx, "alice", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows after delete, got %v", err)
	}
	if err := svc.Delete(ctx, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for double delete, got %v", err)
	}
}

func TestService_WithCreditsAndOpenLoans(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	borrower, err := svc.Create(ctx, "borrower", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	settled, err := svc.Create(ctx, "settled", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "no_loans", "pass"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.CreateCredit(ctx, credit.Credit{
		UserID:       borrower.ID,
		IssuanceDate: date(2023, time.January, 1),
		ReturnDate:   date(2024, time.January, 1),
		Body:         1000,
		Percent:      10,
	}); err != nil {
		t.Fatalf("create credit: %v", err)
	}

	closedAt := date(2023, time.June, 1)
	if _, err := store.CreateCredit(ctx, credit.Credit{
		UserID:           settled.ID,
		IssuanceDate:     date(2023, time.January, 1),
		ReturnDate:       date(2024, time.January, 1),
		ActualReturnDate: &closedAt,
		Body:             2000,
		Percent:          12,
	}); err != nil {
		t.Fatalf("create credit: %v", err)
	}

	withCredits, err := svc.WithCredits(ctx)
	if err != nil {
		t.Fatalf("with credits: %v", err)
	}
	if len(withCredits) != 2 {
		t.Fatalf("expected two users with credits, got %d", len(withCredits))
	}

	open, err := svc.WithOpenLoans(ctx)
	if err != nil {
		t.Fatalf("with open loans: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected one user with open loans, got %d", len(open))
	}
	if open[0].UserID != borrower.ID {
		t.Fatalf("unexpected user: %d", open[0].UserID)
	}
	if len(open[0].OpenLoans) != 1 {
		t.Fatalf("expected one open loan, got %d", len(open[0].OpenLoans))
	}
	if open[0].OpenLoans[0].ActualReturnDate != nil {
		t.Fatalf("closed loan reported as open")
	}
}
