// Package users manages borrower accounts and borrower reports.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

// ErrLoginTaken reports a create or update with a login another user holds.
var ErrLoginTaken = errors.New("login is already taken")

const maxPageSize = 100

// CreditReporter builds per-user credit reports. Implemented by the plans
// service.
type CreditReporter interface {
	UserCredits(ctx context.Context, userID int64) ([]plan.UserCredit, error)
}

// Service manages user records.
type Service struct {
	users    storage.UserStore
	credits  storage.CreditStore
	reporter CreditReporter
	log      *logger.Logger
}

// New constructs a user service.
func New(users storage.UserStore, credits storage.CreditStore, reporter CreditReporter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{users: users, credits: credits, reporter: reporter, log: log}
}

// Create adds a user with a freshly hashed password.
func (s *Service) Create(ctx context.Context, login, password string) (user.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return user.User{}, fmt.Errorf("login and password are required")
	}

	if _, err := s.users.GetUserByLogin(ctx, login); err == nil {
		return user.User{}, ErrLoginTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return user.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return user.User{}, err
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Login:            login,
		PasswordHash:     hash,
		RegistrationDate: time.Now().UTC(),
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Info("user created")
	return created, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// GetByLogin fetches a user by login.
func (s *Service) GetByLogin(ctx context.Context, login string) (user.User, error) {
	return s.users.GetUserByLogin(ctx, login)
}

// List returns users matching the filter. Limit is clamped to 100.
func (s *Service) List(ctx context.Context, f user.Filter) ([]user.User, error) {
	if f.Skip < 0 {
		return nil, fmt.Errorf("skip must not be negative")
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return s.users.ListUsers(ctx, f)
}

// Update changes login and, when non-empty, the password.
func (s *Service) Update(ctx context.Context, id int64, login, password string) (user.User, error) {
	existing, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	login = strings.TrimSpace(login)
	if login == "" {
		return user.User{}, fmt.Errorf("login is required")
	}
	if other, err := s.users.GetUserByLogin(ctx, login); err == nil && other.ID != id {
		return user.User{}, ErrLoginTaken
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return user.User{}, err
	}

	existing.Login = login
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return user.User{}, err
		}
		existing.PasswordHash = hash
	}

	return s.users.UpdateUser(ctx, existing)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// WithCredits returns users who hold at least one credit.
func (s *Service) WithCredits(ctx context.Context) ([]user.User, error) {
	return s.users.ListUsersWithCredits(ctx)
}

// WithOpenLoans returns users with outstanding credits alongside the open
// loan details.
func (s *Service) WithOpenLoans(ctx context.Context) ([]plan.UserWithOpenLoans, error) {
	ids, err := s.credits.ListUserIDsWithOpenCredits(ctx)
	if err != nil {
		return nil, err
	}

	var result []plan.UserWithOpenLoans
	for _, id := range ids {
		u, err := s.users.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		credits, err := s.reporter.UserCredits(ctx, id)
		if err != nil {
			return nil, err
		}

		var open []plan.UserCredit
		for _, c := range credits {
			if c.ActualReturnDate == nil || c.ActualReturnDate.IsZero() {
				open = append(open, c)
			}
		}
		if len(open) == 0 {
			continue
		}

		result = append(result, plan.UserWithOpenLoans{
			UserID:           u.ID,
			Login:            u.Login,
			RegistrationDate: u.RegistrationDate,
			OpenLoans:        open,
		})
	}
	return result, nil
}
