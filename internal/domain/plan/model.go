package plan

import "time"

// Plan is a monthly collection target for one payment category. Period is
// always the first day of the month.
type Plan struct {
	ID         int64     `json:"id" db:"id"`
	Period     time.Time `json:"period" db:"period"`
	Sum        float64   `json:"sum" db:"sum"`
	CategoryID int64     `json:"category_id" db:"category_id"`
}

// CreditPayment is one repayment inside a user credit report.
type CreditPayment struct {
	Date time.Time `json:"date"`
	Sum  float64   `json:"sum"`
	Type string    `json:"type"`
}

// UserCredit summarises one loan with its payment history.
type UserCredit struct {
	CreditID         int64           `json:"credit_id"`
	IssuanceDate     time.Time       `json:"issuance_date"`
	ReturnDate       time.Time       `json:"return_date"`
	ActualReturnDate *time.Time      `json:"actual_return_date,omitempty"`
	Body             float64         `json:"body"`
	Percent          float64         `json:"percent"`
	Payments         []CreditPayment `json:"payments"`
}

// CategoryPerformance compares planned and collected sums for one category.
type CategoryPerformance struct {
	Category    string  `json:"category"`
	Planned     float64 `json:"planned"`
	Actual      float64 `json:"actual"`
	Difference  float64 `json:"difference"`
	Performance float64 `json:"performance_percentage"`
}

// MonthPerformance groups category results for one month of a year report.
type MonthPerformance struct {
	Month      int                            `json:"month"`
	Categories map[string]CategoryPerformance `json:"categories"`
}

// CategoryYearTotals accumulates one category across a year.
type CategoryYearTotals struct {
	TotalPlanned float64               `json:"total_planned"`
	TotalActual  float64               `json:"total_actual"`
	MonthlyData  []CategoryPerformance `json:"monthly_data"`
	Performance  float64               `json:"yearly_performance_percentage"`
}

// YearPerformance is the full yearly report.
type YearPerformance struct {
	Year        int                            `json:"year"`
	Categories  map[string]*CategoryYearTotals `json:"categories"`
	MonthlyData []MonthPerformance             `json:"monthly_data"`
}

// UserWithOpenLoans pairs a user with their outstanding credits.
type UserWithOpenLoans struct {
	UserID           int64        `json:"user_id"`
	Login            string       `json:"login"`
	RegistrationDate time.Time    `json:"registration_date"`
	OpenLoans        []UserCredit `json:"open_loans"`
}
