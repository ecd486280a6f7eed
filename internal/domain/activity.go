package domain

import "time"

// ActivityCategory classifies activities.
type ActivityCategory string

const (
	CategoryEnsino   ActivityCategory = "Ensino"
	CategoryPesquisa ActivityCategory = "Pesquisa"
	CategoryExtensao ActivityCategory = "Extensão"
	CategoryOutros   ActivityCategory = "Outros"
)

// Valid reports whether the category is one of the known values.
func (c ActivityCategory) Valid() bool {
	switch c {
	case CategoryEnsino, CategoryPesquisa, CategoryExtensao, CategoryOutros:
		return true
	default:
		return false
	}
}

// Activity is a registered activity. AuthorID is always stamped from the
// authenticated caller at creation time, never taken from the payload.
type Activity struct {
	ID           string
	Name         string
	Description  string
	Campus       string
	Category     ActivityCategory
	Visibility   bool
	AuthorID     string
	StartDate    *time.Time
	StudentCount *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
