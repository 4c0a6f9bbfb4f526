package category

// Category is a dictionary entry classifying payments and plans.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
