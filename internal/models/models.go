// package models defines the data model for the music school
package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Criteria holds list filters keyed by column-like names (e.g. "status", "from", "search").
//
// Each repository documents the keys it understands; unknown keys are ignored.
type Criteria map[string]any

// String returns the non-empty string stored under key.
func (c Criteria) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok && v != ""
}

// Bool returns the bool stored under key.
func (c Criteria) Bool(key string) (bool, bool) {
	v, ok := c[key].(bool)
	return v, ok
}

// Time returns the non-zero time stored under key.
func (c Criteria) Time(key string) (time.Time, bool) {
	v, ok := c[key].(time.Time)
	return v, ok && !v.IsZero()
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	// Create inserts a new model into the database
	Create(ctx context.Context, model T) error
	// Get retrieves a model by its ID
	Get(ctx context.Context, id string) (T, error)
	// Update modifies an existing model in the database
	Update(ctx context.Context, model T) error
	// Delete removes a model from the database by its ID
	Delete(ctx context.Context, id string) error
	// List retrieves all models matching the given criteria
	List(ctx context.Context, criteria Criteria) ([]T, error)
}

// Pager is implemented by repositories that support paginated listings.
type Pager[T Model] interface {
	Page(ctx context.Context, criteria Criteria, page Page) (*PageResult[T], error)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page requests one page of a listing; Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page number and size to sane values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

// PageResult is one page of items plus the totals needed to render pagination controls.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// NewPageResult computes the page count for total rows at the given page.
func NewPageResult[T any](items []T, total int, page Page) *PageResult[T] {
	page = page.Normalize()
	pages := (total + page.Size - 1) / page.Size
	if pages == 0 {
		pages = 1
	}
	return &PageResult[T]{Items: items, Total: total, Page: page.Number, Size: page.Size, Pages: pages}
}

func (r *PageResult[T]) HasPrev() bool { return r.Page > 1 }
func (r *PageResult[T]) HasNext() bool { return r.Page < r.Pages }
func (r *PageResult[T]) PrevPage() int { return r.Page - 1 }
func (r *PageResult[T]) NextPage() int { return r.Page + 1 }
