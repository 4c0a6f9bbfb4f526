package payment

import "time"

// Payment is a single repayment against a credit, classified by a dictionary
// category (principal, interest, fees).
type Payment struct {
	ID          int64     `json:"id" db:"id"`
	Sum         float64   `json:"sum" db:"sum"`
	PaymentDate time.Time `json:"payment_date" db:"payment_date"`
	CreditID    int64     `json:"credit_id" db:"credit_id"`
	TypeID      int64     `json:"type_id" db:"type_id"`
}
