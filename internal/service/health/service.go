// Package health reports service liveness and database connectivity.
package health

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

const pingTimeout = 2 * time.Second

// Status is the health report returned to operators.
type Status struct {
	Service  string `json:"service"`
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Service checks component health.
type Service struct {
	name string
	db   *sqlx.DB
}

// New constructs a health service. db may be nil when the process runs
// without a database connection.
func New(name string, db *sqlx.DB) *Service {
	return &Service{name: name, db: db}
}

// Check pings the database and reports overall status. The service is
// degraded when the database is unreachable.
func (s *Service) Check(ctx context.Context) Status {
	st := Status{Service: s.name, Status: "ok", Database: "ok"}
	if s.db == nil {
		st.Database = "not configured"
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		st.Status = "degraded"
		st.Database = "unreachable"
	}
	return st
}
