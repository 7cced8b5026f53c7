package domain

import "time"

// Category groups products. Categories are created and modified only through
// approved requests.
type Category struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
