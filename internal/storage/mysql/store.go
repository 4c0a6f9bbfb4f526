// Package mysql implements the storage interfaces backed by MySQL.
package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/category"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/credit"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/payment"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
)

// Store implements the storage interfaces backed by MySQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC()
	}

	if u.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, login, password, registration_date)
			VALUES (?, ?, ?, ?)
		`, u.ID, u.Login, u.PasswordHash, u.RegistrationDate)
		if err != nil {
			return user.User{}, err
		}
		return u, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (login, password, registration_date)
		VALUES (?, ?, ?)
	`, u.Login, u.PasswordHash, u.RegistrationDate)
	if err != nil {
		return user.User{}, err
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.RegistrationDate = existing.RegistrationDate

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET login = ?, password = ?
		WHERE id = ?
	`, u.Login, u.PasswordHash, u.ID)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, login, password, registration_date
		FROM users
		WHERE id = ?
	`, id)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, login, password, registration_date
		FROM users
		WHERE login = ?
	`, login)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, f user.Filter) ([]user.User, error) {
	query := `
		SELECT id, login, password, registration_date
		FROM users
		WHERE (? = 0 OR registration_date >= ?)
		  AND (? = 0 OR registration_date <= ?)
		ORDER BY id
		LIMIT ? OFFSET ?
	`
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	fromSet, toSet := 0, 0
	if !f.RegisteredFrom.IsZero() {
		fromSet = 1
	}
	if !f.RegisteredTo.IsZero() {
		toSet = 1
	}

	var users []user.User
	err := s.db.SelectContext(ctx, &users, query,
		fromSet, f.RegisteredFrom, toSet, f.RegisteredTo, limit, f.Skip)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) ListUsersWithCredits(ctx context.Context) ([]user.User, error) {
	var users []user.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT DISTINCT u.id, u.login, u.password, u.registration_date
		FROM users u
		JOIN credits c ON c.user_id = u.id
		ORDER BY u.id
	`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// --- CreditStore ------------------------------------------------------------

func (s *Store) CreateCredit(ctx context.Context, c credit.Credit) (credit.Credit, error) {
	if c.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO credits (id, user_id, issuance_date, return_date, actual_return_date, body, percent)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.UserID, c.IssuanceDate, c.ReturnDate, c.ActualReturnDate, c.Body, c.Percent)
		if err != nil {
			return credit.Credit{}, err
		}
		return c, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO credits (user_id, issuance_date, return_date, actual_return_date, body, percent)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.UserID, c.IssuanceDate, c.ReturnDate, c.ActualReturnDate, c.Body, c.Percent)
	if err != nil {
		return credit.Credit{}, err
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return credit.Credit{}, err
	}
	return c, nil
}

func (s *Store) GetCredit(ctx context.Context, id int64) (credit.Credit, error) {
	var c credit.Credit
	err := s.db.GetContext(ctx, &c, `
		SELECT id, user_id, issuance_date, return_date, actual_return_date, body, percent
		FROM credits
		WHERE id = ?
	`, id)
	if err != nil {
		return credit.Credit{}, err
	}
	return c, nil
}

func (s *Store) ListCreditsByUser(ctx context.Context, userID int64) ([]credit.Credit, error) {
	var credits []credit.Credit
	err := s.db.SelectContext(ctx, &credits, `
		SELECT id, user_id, issuance_date, return_date, actual_return_date, body, percent
		FROM credits
		WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	return credits, nil
}

func (s *Store) ListUserIDsWithOpenCredits(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT user_id
		FROM credits
		WHERE actual_return_date IS NULL
		ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- PaymentStore -----------------------------------------------------------

func (s *Store) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	if p.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO payments (id, sum, payment_date, credit_id, type_id)
			VALUES (?, ?, ?, ?, ?)
		`, p.ID, p.Sum, p.PaymentDate, p.CreditID, p.TypeID)
		if err != nil {
			return payment.Payment{}, err
		}
		return p, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (sum, payment_date, credit_id, type_id)
		VALUES (?, ?, ?, ?)
	`, p.Sum, p.PaymentDate, p.CreditID, p.TypeID)
	if err != nil {
		return payment.Payment{}, err
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (s *Store) CreatePayments(ctx context.Context, ps []payment.Payment) error {
	if len(ps) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO payments (id, sum, payment_date, credit_id, type_id)
		VALUES (:id, :sum, :payment_date, :credit_id, :type_id)
	`, ps)
	return err
}

func (s *Store) ListPaymentsByCredit(ctx context.Context, creditID int64) ([]payment.Payment, error) {
	var payments []payment.Payment
	err := s.db.SelectContext(ctx, &payments, `
		SELECT id, sum, payment_date, credit_id, type_id
		FROM payments
		WHERE credit_id = ?
		ORDER BY payment_date
	`, creditID)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) SumPaymentsByCategory(ctx context.Context, categoryID int64, from, to time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.GetContext(ctx, &total, `
		SELECT SUM(p.sum)
		FROM payments p
		JOIN credits c ON p.credit_id = c.id
		WHERE p.type_id = ?
		  AND p.payment_date >= ?
		  AND p.payment_date < ?
	`, categoryID, from, to)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// --- PlanStore --------------------------------------------------------------

func (s *Store) CreatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	if p.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO plans (id, period, sum, category_id)
			VALUES (?, ?, ?, ?)
		`, p.ID, p.Period, p.Sum, p.CategoryID)
		if err != nil {
			return plan.Plan{}, err
		}
		return p, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (period, sum, category_id)
		VALUES (?, ?, ?)
	`, p.Period, p.Sum, p.CategoryID)
	if err != nil {
		return plan.Plan{}, err
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return plan.Plan{}, err
	}
	return p, nil
}

func (s *Store) GetPlanByPeriodCategory(ctx context.Context, period time.Time, categoryID int64) (plan.Plan, error) {
	var p plan.Plan
	err := s.db.GetContext(ctx, &p, `
		SELECT id, period, sum, category_id
		FROM plans
		WHERE period = ? AND category_id = ?
	`, period, categoryID)
	if err != nil {
		return plan.Plan{}, err
	}
	return p, nil
}

func (s *Store) ListPlansByPeriod(ctx context.Context, period time.Time) ([]plan.Plan, error) {
	var plans []plan.Plan
	err := s.db.SelectContext(ctx, &plans, `
		SELECT id, period, sum, category_id
		FROM plans
		WHERE period = ?
		ORDER BY id
	`, period)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// --- CategoryStore ----------------------------------------------------------

func (s *Store) CreateCategory(ctx context.Context, c category.Category) (category.Category, error) {
	if c.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO dictionary (id, name) VALUES (?, ?)
		`, c.ID, c.Name)
		if err != nil {
			return category.Category{}, err
		}
		return c, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO dictionary (name) VALUES (?)
	`, c.Name)
	if err != nil {
		return category.Category{}, err
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return category.Category{}, err
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (category.Category, error) {
	var c category.Category
	err := s.db.GetContext(ctx, &c, `
		SELECT id, name FROM dictionary WHERE id = ?
	`, id)
	if err != nil {
		return category.Category{}, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]category.Category, error) {
	var categories []category.Category
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, name FROM dictionary ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// --- MaintenanceStore -------------------------------------------------------

func (s *Store) PurgeAll(ctx context.Context) error {
	// Children before parents to satisfy foreign keys.
	for _, table := range []string{"payments", "credits", "plans", "dictionary", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
