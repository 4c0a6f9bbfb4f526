package health

import (
	"context"
	"testing"
)

func TestCheck_WithoutDatabase(t *testing.T) {
	svc := New("loanplan", nil)

	st := svc.Check(context.Background())
	if st.Service != "loanplan" {
		t.Fatalf("unexpected service name: %q", st.Service)
	}
	if st.Status != "ok" {
		t.Fatalf("unexpected status: %q", st.Status)
	}
	if st.Database != "not configured" {
		t.Fatalf("unexpected database state: %q", st.Database)
	}
}
