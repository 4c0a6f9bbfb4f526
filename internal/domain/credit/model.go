package credit

import "time"

// Credit represents an issued loan.
type Credit struct {
	ID               int64      `json:"id" db:"id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	IssuanceDate     time.Time  `json:"issuance_date" db:"issuance_date"`
	ReturnDate       time.Time  `json:"return_date" db:"return_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty" db:"actual_return_date"`
	Body             float64    `json:"body" db:"body"`
	Percent          float64    `json:"percent" db:"percent"`
}

// Closed reports whether the loan has been repaid.
func (c Credit) Closed() bool {
	return c.ActualReturnDate != nil && !c.ActualReturnDate.IsZero()
}
