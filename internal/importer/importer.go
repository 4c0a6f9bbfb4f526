// Package importer bulk-loads historical data from tab-delimited CSV
// exports into the database.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/category"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/credit"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/payment"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/plan"
	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

// dateLayout matches the DD.MM.YYYY dates used by the export files.
const dateLayout = "02.01.2006"

// defaultPassword is assigned to every imported user; the export files
// carry no password column.
const defaultPassword = "password123"

// batchSize is how many payments are inserted per statement.
const batchSize = 1000

// Importer loads the five export files in dependency order, replacing
// all existing data.
type Importer struct {
	store storage.Store
	log   *logger.Logger
}

// New constructs an Importer.
func New(store storage.Store, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.NewDefault("importer")
	}
	return &Importer{store: store, log: log}
}

// Run wipes the database and imports dictionary.csv, users.csv,
// credits.csv, payments.csv and plans.csv from dir.
func (im *Importer) Run(ctx context.Context, dir string) error {
	if err := im.store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge existing data: %w", err)
	}

	if err := im.importDictionary(ctx, filepath.Join(dir, "dictionary.csv")); err != nil {
		return err
	}
	if err := im.importUsers(ctx, filepath.Join(dir, "users.csv")); err != nil {
		return err
	}
	if err := im.importCredits(ctx, filepath.Join(dir, "credits.csv")); err != nil {
		return err
	}
	if err := im.importPayments(ctx, filepath.Join(dir, "payments.csv")); err != nil {
		return err
	}
	if err := im.importPlans(ctx, filepath.Join(dir, "plans.csv")); err != nil {
		return err
	}

	im.log.WithField("dir", dir).Info("import completed")
	return nil
}

// record is one CSV row keyed by header name.
type record map[string]string

func readRecords(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", filepath.Base(path))
	}

	header := rows[0]
	records := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[strings.TrimSpace(col)] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (im *Importer) importDictionary(ctx context.Context, path string) error {
	records, err := readRecords(path)
	if err != nil {
		return err
	}
	for i, rec := range records {
		id, err := parseID(rec, "id")
		if err != nil {
			return rowErr(path, i, err)
		}
		if _, err := im.store.CreateCategory(ctx, category.Category{ID: id, Name: rec["name"]}); err != nil {
			return rowErr(path, i, err)
		}
	}
	im.log.WithField("rows", len(records)).Info("dictionary imported")
	return nil
}

func (im *Importer) importUsers(ctx context.Context, path string) error {
	records, err := readRecords(path)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(defaultPassword)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}

	for i, rec := range records {
		id, err := parseID(rec, "id")
		if err != nil {
			return rowErr(path, i, err)
		}
		registered, err := parseDate(rec["registration_date"])
		if err != nil {
			return rowErr(path, i, err)
		}
		u := user.User{
			ID:               id,
			Login:            rec["login"],
			PasswordHash:     hash,
			RegistrationDate: registered,
		}
		if _, err := im.store.CreateUser(ctx, u); err != nil {
			return rowErr(path, i, err)
		}
	}
	im.log.WithField("rows", len(records)).Info("users imported")
	return nil
}

func (im *Importer) importCredits(ctx context.Context, path string) error {
	records, err := readRecords(path)
	if err != nil {
		return err
	}
	for i, rec := range records {
		id, err := parseID(rec, "id")
		if err != nil {
			return rowErr(path, i, err)
		}
		userID, err := parseID(rec, "user_id")
		if err != nil {
			return rowErr(path, i, err)
		}
		issuance, err := parseDate(rec["issuance_date"])
		if err != nil {
			return rowErr(path, i, err)
		}
		ret, err := parseDate(rec["return_date"])
		if err != nil {
			return rowErr(path, i, err)
		}
		body, err := parseSum(rec, "body")
		if err != nil {
			return rowErr(path, i, err)
		}
		percent, err := parseSum(rec, "percent")
		if err != nil {
			return rowErr(path, i, err)
		}

		c := credit.Credit{
			ID:           id,
			UserID:       userID,
			IssuanceDate: issuance,
			ReturnDate:   ret,
			Body:         body,
			Percent:      percent,
		}
		// An empty actual_return_date means the loan is still open.
		if rec["actual_return_date"] != "" {
			actual, err := parseDate(rec["actual_return_date"])
			if err != nil {
				return rowErr(path, i, err)
			}
			c.ActualReturnDate = &actual
		}
		if _, err := im.store.CreateCredit(ctx, c); err != nil {
			return rowErr(path, i, err)
		}
	}
	im.log.WithField("rows", len(records)).Info("credits imported")
	return nil
}

func (im *Importer) importPayments(ctx context.Context, path string) error {
	records, err := readRecords(path)
	if err != nil {
		return err
	}
	batch := make([]payment.Payment, 0, batchSize)
	flush := func(upTo int) error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.store.CreatePayments(ctx, batch); err != nil {
			return fmt.Errorf("%s rows %d-%d: %w", filepath.Base(path), upTo-len(batch)+2, upTo+1, err)
		}
		batch = batch[:0]
		return nil
	}

	for i, rec := range records {
		id, err := parseID(rec, "id")
		if err != nil {
			return rowErr(path, i, err)
		}
		creditID, err := parseID(rec, "credit_id")
		if err != nil {
			return rowErr(path, i, err)
		}
		typeID, err := parseID(rec, "type_id")
		if err != nil {
			return rowErr(path, i, err)
		}
		date, err := parseDate(rec["payment_date"])
		if err != nil {
			return rowErr(path, i, err)
		}
		sum, err := parseSum(rec, "sum")
		if err != nil {
			return rowErr(path, i, err)
		}
		batch = append(batch, payment.Payment{
			ID:          id,
			Sum:         sum,
			PaymentDate: date,
			CreditID:    creditID,
			TypeID:      typeID,
		})
		if len(batch) == batchSize {
			if err := flush(i); err != nil {
				return err
			}
			im.log.WithField("rows", i+1).Info("payments import progress")
		}
	}
	if err := flush(len(records) - 1); err != nil {
		return err
	}
	im.log.WithField("rows", len(records)).Info("payments imported")
	return nil
}

func (im *Importer) importPlans(ctx context.Context, path string) error {
	records, err := readRecords(path)
	if err != nil {
		return err
	}
	for i, rec := range records {
		id, err := parseID(rec, "id")
		if err != nil {
			return rowErr(path, i, err)
		}
		categoryID, err := parseID(rec, "category_id")
		if err != nil {
			return rowErr(path, i, err)
		}
		period, err := parseDate(rec["period"])
		if err != nil {
			return rowErr(path, i, err)
		}
		sum, err := parseSum(rec, "sum")
		if err != nil {
			return rowErr(path, i, err)
		}
		p := plan.Plan{
			ID:         id,
			Period:     period,
			Sum:        sum,
			CategoryID: categoryID,
		}
		if _, err := im.store.CreatePlan(ctx, p); err != nil {
			return rowErr(path, i, err)
		}
	}
	im.log.WithField("rows", len(records)).Info("plans imported")
	return nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: expected DD.MM.YYYY", raw)
	}
	return t, nil
}

func parseID(rec record, key string) (int64, error) {
	v, err := strconv.ParseInt(rec[key], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: not an integer", key, rec[key])
	}
	return v, nil
}

func parseSum(rec record, key string) (float64, error) {
	v, err := strconv.ParseFloat(rec[key], 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: not a number", key, rec[key])
	}
	return v, nil
}

func rowErr(path string, row int, err error) error {
	return fmt.Errorf("%s row %d: %w", filepath.Base(path), row+2, err)
}
