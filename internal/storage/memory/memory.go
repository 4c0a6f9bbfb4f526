package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/category"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/credit"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/payment"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]user.User
	credits    map[int64]credit.Credit
	payments   map[int64]payment.Payment
	plans      map[int64]plan.Plan
	categories map[int64]category.Category
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		users:      make(map[int64]user.User),
		credits:    make(map[int64]credit.Credit),
		payments:   make(map[int64]payment.Payment),
		plans:      make(map[int64]plan.Plan),
		categories: make(map[int64]category.Category),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// claimIDLocked advances the allocator past an explicit ID so later
// auto-ID inserts cannot collide with imported rows.
func (s *Store) claimIDLocked(id int64) {
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Login == u.Login {
			return user.User{}, fmt.Errorf("login %q already taken", u.Login)
		}
	}

	if u.ID == 0 {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %d already exists", u.ID)
	} else {
		s.claimIDLocked(u.ID)
	}
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %d: %w", u.ID, sql.ErrNoRows)
	}
	u.RegistrationDate = original.RegistrationDate
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %d: %w", id, sql.ErrNoRows)
	}
	return u, nil
}

func (s *Store) GetUserByLogin(_ context.Context, login string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Login == login {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user %q: %w", login, sql.ErrNoRows)
}

func (s *Store) ListUsers(_ context.Context, f user.Filter) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []user.User
	for _, u := range s.users {
		if !f.RegisteredFrom.IsZero() && u.RegistrationDate.Before(f.RegisteredFrom) {
			continue
		}
		if !f.RegisteredTo.IsZero() && u.RegistrationDate.After(f.RegisteredTo) {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if f.Skip > 0 {
		if f.Skip >= len(all) {
			return nil, nil
		}
		all = all[f.Skip:]
	}
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, sql.ErrNoRows)
	}
	delete(s.users, id)
	return nil
}

func (s *Store) ListUsersWithCredits(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]bool)
	var result []user.User
	for _, c := range s.credits {
		if seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		if u, ok := s.users[c.UserID]; ok {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreditStore implementation --------------------------------------------------

func (s *Store) CreateCredit(_ context.Context, c credit.Credit) (credit.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[c.UserID]; !ok {
		return credit.Credit{}, fmt.Errorf("user %d: %w", c.UserID, sql.ErrNoRows)
	}
	if c.ID == 0 {
		c.ID = s.nextIDLocked()
	} else if _, exists := s.credits[c.ID]; exists {
		return credit.Credit{}, fmt.Errorf("credit %d already exists", c.ID)
	} else {
		s.claimIDLocked(c.ID)
	}
	s.credits[c.ID] = c
	return c, nil
}

func (s *Store) GetCredit(_ context.Context, id int64) (credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credits[id]
	if !ok {
		return credit.Credit{}, fmt.Errorf("credit %d: %w", id, sql.ErrNoRows)
	}
	return c, nil
}

func (s *Store) ListCreditsByUser(_ context.Context, userID int64) ([]credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []credit.Credit
	for _, c := range s.credits {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) ListUserIDsWithOpenCredits(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]bool)
	var ids []int64
	for _, c := range s.credits {
		if c.Closed() || seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		ids = append(ids, c.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// PaymentStore implementation -------------------------------------------------

func (s *Store) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPaymentLocked(p)
}

func (s *Store) CreatePayments(_ context.Context, ps []payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range ps {
		if _, err := s.createPaymentLocked(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createPaymentLocked(p payment.Payment) (payment.Payment, error) {
	if _, ok := s.credits[p.CreditID]; !ok {
		return payment.Payment{}, fmt.Errorf("credit %d: %w", p.CreditID, sql.ErrNoRows)
	}
	if _, ok := s.categories[p.TypeID]; !ok {
		return payment.Payment{}, fmt.Errorf("category %d: %w", p.TypeID, sql.ErrNoRows)
	}
	if p.ID == 0 {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.payments[p.ID]; exists {
		return payment.Payment{}, fmt.Errorf("payment %d already exists", p.ID)
	} else {
		s.claimIDLocked(p.ID)
	}
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) ListPaymentsByCredit(_ context.Context, creditID int64) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Payment
	for _, p := range s.payments {
		if p.CreditID == creditID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PaymentDate.Before(result[j].PaymentDate)
	})
	return result, nil
}

func (s *Store) SumPaymentsByCategory(_ context.Context, categoryID int64, from, to time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, p := range s.payments {
		if p.TypeID != categoryID {
			continue
		}
		if p.PaymentDate.Before(from) || !p.PaymentDate.Before(to) {
			continue
		}
		total += p.Sum
	}
	return total, nil
}

// PlanStore implementation ----------------------------------------------------

func (s *Store) CreatePlan(_ context.Context, p plan.Plan) (plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[p.CategoryID]; !ok {
		return plan.Plan{}, fmt.Errorf("category %d: %w", p.CategoryID, sql.ErrNoRows)
	}
	if p.ID == 0 {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.plans[p.ID]; exists {
		return plan.Plan{}, fmt.Errorf("plan %d already exists", p.ID)
	} else {
		s.claimIDLocked(p.ID)
	}
	s.plans[p.ID] = p
	return p, nil
}

func (s *Store) GetPlanByPeriodCategory(_ context.Context, period time.Time, categoryID int64) (plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		if p.CategoryID == categoryID && sameDay(p.Period, period) {
			return p, nil
		}
	}
	return plan.Plan{}, fmt.Errorf("plan for category %d: %w", categoryID, sql.ErrNoRows)
}

func (s *Store) ListPlansByPeriod(_ context.Context, period time.Time) ([]plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []plan.Plan
	for _, p := range s.plans {
		if sameDay(p.Period, period) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CategoryStore implementation ------------------------------------------------

func (s *Store) CreateCategory(_ context.Context, c category.Category) (category.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return category.Category{}, fmt.Errorf("category %q already exists", c.Name)
		}
	}
	if c.ID == 0 {
		c.ID = s.nextIDLocked()
	} else if _, exists := s.categories[c.ID]; exists {
		return category.Category{}, fmt.Errorf("category %d already exists", c.ID)
	} else {
		s.claimIDLocked(c.ID)
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return category.Category{}, fmt.Errorf("category %d: %w", id, sql.ErrNoRows)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]category.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MaintenanceStore implementation ---------------------------------------------

func (s *Store) PurgeAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[int64]user.User)
	s.credits = make(map[int64]credit.Credit)
	s.payments = make(map[int64]payment.Payment)
	s.plans = make(map[int64]plan.Plan)
	s.categories = make(map[int64]category.Category)
	s.nextID = 1
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
