package storage

import (
	"context"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/category"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/credit"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/payment"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByLogin(ctx context.Context, login string) (user.User, error)
	ListUsers(ctx context.Context, f user.Filter) ([]user.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsersWithCredits(ctx context.Context) ([]user.User, error)
}

// CreditStore persists issued loans.
type CreditStore interface {
	CreateCredit(ctx context.Context, c credit.Credit) (credit.Credit, error)
	GetCredit(ctx context.Context, id int64) (credit.Credit, error)
	ListCreditsByUser(ctx context.Context, userID int64) ([]credit.Credit, error)
	ListUserIDsWithOpenCredits(ctx context.Context) ([]int64, error)
}

// PaymentStore persists loan repayments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	// CreatePayments inserts a batch of payments with explicit IDs in
	// one statement. Used by bulk-load workflows.
	CreatePayments(ctx context.Context, ps []payment.Payment) error
	ListPaymentsByCredit(ctx context.Context, creditID int64) ([]payment.Payment, error)
	// SumPaymentsByCategory totals payments of a category with
	// payment_date in [from, to).
	SumPaymentsByCategory(ctx context.Context, categoryID int64, from, to time.Time) (float64, error)
}

// PlanStore persists monthly collection targets.
type PlanStore interface {
	CreatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error)
	GetPlanByPeriodCategory(ctx context.Context, period time.Time, categoryID int64) (plan.Plan, error)
	ListPlansByPeriod(ctx context.Context, period time.Time) ([]plan.Plan, error)
}

// CategoryStore persists the payment-category dictionary.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c category.Category) (category.Category, error)
	GetCategory(ctx context.Context, id int64) (category.Category, error)
	ListCategories(ctx context.Context) ([]category.Category, error)
}

// MaintenanceStore supports bulk-load workflows that replace all data.
type MaintenanceStore interface {
	// PurgeAll removes every row, children before parents.
	PurgeAll(ctx context.Context) error
}

// Store aggregates every persistence interface the service needs.
type Store interface {
	UserStore
	CreditStore
	PaymentStore
	PlanStore
	CategoryStore
	MaintenanceStore
}
