// Package seed loads a small deterministic dataset for local development
// and demos.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/category"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/credit"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/payment"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	plansvc "github.com/SpasiboVadya/loan-planning-system/internal/service/plans"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

// DemoPassword is the password assigned to every seeded user.
const DemoPassword = "password123"

var categoryNames = []string{"Principal", "Interest", "Late Fee", "Processing Fee"}

var logins = []string{"john_doe", "jane_smith", "bob_wilson"}

// Run populates the store with demo categories, users, credits, payments
// and plans. Existing data is left alone; rows that already exist are
// skipped where the store reports a duplicate.
func Run(ctx context.Context, store storage.Store, now time.Time, log *logger.Logger) error {
	if log == nil {
		log = logger.NewDefault("seed")
	}

	categories := make([]category.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		c, err := store.CreateCategory(ctx, category.Category{Name: name})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		categories = append(categories, c)
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	monthStart := plansvc.FirstOfMonth(now)

	for ui, login := range logins {
		u, err := store.CreateUser(ctx, user.User{
			Login:            login,
			PasswordHash:     hash,
			RegistrationDate: monthStart.AddDate(0, -6, ui),
		})
		if err != nil {
			return fmt.Errorf("seed user %q: %w", login, err)
		}

		for ci := 0; ci < 2; ci++ {
			issued := monthStart.AddDate(0, -4+ci, 3*ui)
			c := credit.Credit{
				UserID:       u.ID,
				IssuanceDate: issued,
				ReturnDate:   issued.AddDate(1, 0, 0),
				Body:         10000.00,
				Percent:      12.5,
			}
			// First credit of each user is already repaid.
			if ci == 0 {
				closed := issued.AddDate(0, 2, 0)
				c.ActualReturnDate = &closed
			}
			created, err := store.CreateCredit(ctx, c)
			if err != nil {
				return fmt.Errorf("seed credit for %q: %w", login, err)
			}

			for pi := 0; pi < 3; pi++ {
				_, err := store.CreatePayment(ctx, payment.Payment{
					Sum:         850.00 + float64(pi)*25,
					PaymentDate: issued.AddDate(0, pi, 10),
					CreditID:    created.ID,
					TypeID:      categories[pi%len(categories)].ID,
				})
				if err != nil {
					return fmt.Errorf("seed payment for credit %d: %w", created.ID, err)
				}
			}
		}
	}

	for m := -2; m <= 0; m++ {
		period := monthStart.AddDate(0, m, 0)
		for _, c := range categories {
			_, err := store.CreatePlan(ctx, plan.Plan{
				Period:     period,
				Sum:        2500.00,
				CategoryID: c.ID,
			})
			if err != nil {
				return fmt.Errorf("seed plan %s/%s: %w", period.Format("2006-01"), c.Name, err)
			}
		}
	}

	log.WithField("users", len(logins)).WithField("categories", len(categories)).Info("demo data seeded")
	return nil
}
