package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage/memory"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeExport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "dictionary.csv",
		"id\tname\n"+
			"1\tPrincipal\n"+
			"2\tInterest\n")
	writeFile(t, dir, "users.csv",
		"id\tlogin\tregistration_date\n"+
			"10\tivan_petrov\t15.01.2020\n"+
			"11\tolga_sidorova\t03.11.2021\n")
	writeFile(t, dir, "credits.csv",
		"id\tuser_id\tissuance_date\treturn_date\tactual_return_date\tbody\tpercent\n"+
			"100\t10\t01.02.2020\t01.02.2021\t15.12.2020\t50000.00\t12.50\n"+
			"101\t11\t05.03.2021\t05.03.2022\t\t80000.00\t10.00\n")
	writeFile(t, dir, "payments.csv",
		"id\tsum\tpayment_date\tcredit_id\ttype_id\n"+
			"1000\t4500.00\t10.03.2020\t100\t1\n"+
			"1001\t500.00\t10.03.2020\t100\t2\n")
	writeFile(t, dir, "plans.csv",
		"id\tperiod\tsum\tcategory_id\n"+
			"500\t01.03.2020\t5000.00\t1\n")
	return dir
}

func TestImporter_Run(t *testing.T) {
	store := memory.New()
	dir := writeExport(t)
	ctx := context.Background()

	// Pre-existing data must be wiped before loading.
	if _, err := store.CreateUser(ctx, user.User{
		Login: "stale", PasswordHash: "x", RegistrationDate: time.Now(),
	}); err != nil {
		t.Fatalf("create stale user: %v", err)
	}

	if err := New(store, nil).Run(ctx, dir); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := store.GetUserByLogin(ctx, "stale"); err == nil {
		t.Fatalf("stale data survived the import")
	}

	u, err := store.GetUser(ctx, 10)
	if err != nil {
		t.Fatalf("imported user missing: %v", err)
	}
	if u.Login != "ivan_petrov" {
		t.Fatalf("unexpected login: %q", u.Login)
	}
	if !u.RegistrationDate.Equal(time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date not parsed as DD.MM.YYYY: %v", u.RegistrationDate)
	}
	if !auth.CheckPassword("password123", u.PasswordHash) {
		t.Fatalf("imported user did not get the default password")
	}

	closed, err := store.GetCredit(ctx, 100)
	if err != nil {
		t.Fatalf("imported credit missing: %v", err)
	}
	if closed.ActualReturnDate == nil {
		t.Fatalf("returned credit must carry its actual return date")
	}
	open, err := store.GetCredit(ctx, 101)
	if err != nil {
		t.Fatalf("imported credit missing: %v", err)
	}
	if open.ActualReturnDate != nil {
		t.Fatalf("empty actual_return_date must stay open")
	}

	payments, err := store.ListPaymentsByCredit(ctx, 100)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected two payments, got %d", len(payments))
	}

	p, err := store.GetPlanByPeriodCategory(ctx, time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC), 1)
	if err != nil {
		t.Fatalf("imported plan missing: %v", err)
	}
	if p.Sum != 5000 {
		t.Fatalf("unexpected plan sum: %v", p.Sum)
	}
}

func TestImporter_PaymentsSpanMultipleBatches(t *testing.T) {
	store := memory.New()
	dir := writeExport(t)

	var sb strings.Builder
	sb.WriteString("id\tsum\tpayment_date\tcredit_id\ttype_id\n")
	rows := batchSize + 250
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%d\t100.00\t10.03.2020\t100\t1\n", 1000+i)
	}
	writeFile(t, dir, "payments.csv", sb.String())

	if err := New(store, nil).Run(context.Background(), dir); err != nil {
		t.Fatalf("run: %v", err)
	}

	payments, err := store.ListPaymentsByCredit(context.Background(), 100)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != rows {
		t.Fatalf("expected %d payments across batches, got %d", rows, len(payments))
	}
}

func TestImporter_BadDate(t *testing.T) {
	store := memory.New()
	dir := writeExport(t)
	writeFile(t, dir, "users.csv",
		"id\tlogin\tregistration_date\n"+
			"10\tivan_petrov\t2020-01-15\n")

	err := New(store, nil).Run(context.Background(), dir)
	if err == nil {
		t.Fatalf("ISO date accepted, expected DD.MM.YYYY error")
	}
}

func TestImporter_MissingFile(t *testing.T) {
	store := memory.New()
	dir := t.TempDir()

	if err := New(store, nil).Run(context.Background(), dir); err == nil {
		t.Fatalf("missing export files accepted")
	}
}
