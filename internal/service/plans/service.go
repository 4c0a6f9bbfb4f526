// Package plans builds credit reports and plan performance analytics, and
// seeds the monthly collection targets.
package plans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

// growthFactor sizes a new monthly plan relative to the previous month's
// collections in the same category.
const growthFactor = 1.1

// Service implements plan management and reporting.
type Service struct {
	credits    storage.CreditStore
	payments   storage.PaymentStore
	plans      storage.PlanStore
	categories storage.CategoryStore
	log        *logger.Logger
}

// New constructs a plan service.
func New(credits storage.CreditStore, payments storage.PaymentStore, plans storage.PlanStore, categories storage.CategoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("plans")
	}
	return &Service{credits: credits, payments: payments, plans: plans, categories: categories, log: log}
}

// UserCredits returns every credit of a user with its ordered payment
// history and resolved category names.
func (s *Service) UserCredits(ctx context.Context, userID int64) ([]plan.UserCredit, error) {
	credits, err := s.credits.ListCreditsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string)
	var result []plan.UserCredit
	for _, c := range credits {
		payments, err := s.payments.ListPaymentsByCredit(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		entries := make([]plan.CreditPayment, 0, len(payments))
		for _, p := range payments {
			name, ok := names[p.TypeID]
			if !ok {
				cat, err := s.categories.GetCategory(ctx, p.TypeID)
				if err != nil {
					return nil, fmt.Errorf("resolve payment type %d: %w", p.TypeID, err)
				}
				name = cat.Name
				names[p.TypeID] = name
			}
			entries = append(entries, plan.CreditPayment{
				Date: p.PaymentDate,
				Sum:  p.Sum,
				Type: name,
			})
		}

		result = append(result, plan.UserCredit{
			CreditID:         c.ID,
			IssuanceDate:     c.IssuanceDate,
			ReturnDate:       c.ReturnDate,
			ActualReturnDate: c.ActualReturnDate,
			Body:             c.Body,
			Percent:          c.Percent,
			Payments:         entries,
		})
	}
	return result, nil
}

// InsertPlans creates a plan row per category for the month containing now,
// skipping categories that already have one. A new plan's sum is 110% of
// the previous month's payments in that category. Returns the number of
// plans inserted.
func (s *Service) InsertPlans(ctx context.Context, now time.Time) (int, error) {
	period := FirstOfMonth(now)
	prev := period.AddDate(0, -1, 0)

	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, cat := range categories {
		_, err := s.plans.GetPlanByPeriodCategory(ctx, period, cat.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return inserted, err
		}

		prevSum, err := s.payments.SumPaymentsByCategory(ctx, cat.ID, prev, period)
		if err != nil {
			return inserted, err
		}

		if _, err := s.plans.CreatePlan(ctx, plan.Plan{
			Period:     period,
			Sum:        prevSum * growthFactor,
			CategoryID: cat.ID,
		}); err != nil {
			return inserted, err
		}
		inserted++
	}

	s.log.WithField("period", period.Format("2006-01-02")).
		WithField("inserted", inserted).
		Info("monthly plans inserted")
	return inserted, nil
}

// MonthPerformance compares planned and actual sums per category for the
// month starting at period.
func (s *Service) MonthPerformance(ctx context.Context, period time.Time) ([]plan.CategoryPerformance, error) {
	period = FirstOfMonth(period)
	next := period.AddDate(0, 1, 0)

	rows, err := s.plans.ListPlansByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}

	result := make([]plan.CategoryPerformance, 0, len(rows))
	for _, p := range rows {
		actual, err := s.payments.SumPaymentsByCategory(ctx, p.CategoryID, period, next)
		if err != nil {
			return nil, err
		}
		cat, err := s.categories.GetCategory(ctx, p.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("resolve category %d: %w", p.CategoryID, err)
		}
		result = append(result, plan.CategoryPerformance{
			Category:    cat.Name,
			Planned:     p.Sum,
			Actual:      actual,
			Difference:  actual - p.Sum,
			Performance: performancePct(actual, p.Sum),
		})
	}
	return result, nil
}

// YearPerformance aggregates monthly plan performance across a full year,
// with per-category yearly totals.
func (s *Service) YearPerformance(ctx context.Context, year int) (plan.YearPerformance, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return plan.YearPerformance{}, err
	}

	report := plan.YearPerformance{
		Year:       year,
		Categories: make(map[string]*plan.CategoryYearTotals, len(categories)),
	}
	for _, cat := range categories {
		report.Categories[cat.Name] = &plan.CategoryYearTotals{}
	}

	for month := time.January; month <= time.December; month++ {
		period := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

		perf, err := s.MonthPerformance(ctx, period)
		if err != nil {
			return plan.YearPerformance{}, err
		}

		monthData := plan.MonthPerformance{
			Month:      int(month),
			Categories: make(map[string]plan.CategoryPerformance, len(perf)),
		}
		for _, cp := range perf {
			monthData.Categories[cp.Category] = cp

			totals, ok := report.Categories[cp.Category]
			if !ok {
				totals = &plan.CategoryYearTotals{}
				report.Categories[cp.Category] = totals
			}
			totals.TotalPlanned += cp.Planned
			totals.TotalActual += cp.Actual
			totals.MonthlyData = append(totals.MonthlyData, cp)
		}
		report.MonthlyData = append(report.MonthlyData, monthData)
	}

	for _, totals := range report.Categories {
		totals.Performance = performancePct(totals.TotalActual, totals.TotalPlanned)
	}
	return report, nil
}

// FirstOfMonth truncates t to midnight UTC on the first day of its month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func performancePct(actual, planned float64) float64 {
	if planned <= 0 {
		return 0
	}
	return actual / planned * 100
}
