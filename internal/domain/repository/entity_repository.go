package repository

import (
	"context"

	"github.com/planning-data/entity-search/internal/domain"
)

// EntityRepository определяет методы для поиска и выборки entities
type EntityRepository interface {
	// Search applies the full predicate stage list and returns the exact
	// total count plus the paginated page, computed from the same stages
	// inside one snapshot.
	Search(ctx context.Context, p domain.SearchParameters) (*domain.SearchResult, error)

	// Count applies the filter stages only and reduces to a total.
	Count(ctx context.Context, p domain.SearchParameters) (int, error)

	// GetByID returns a single entity by its identifier.
	GetByID(ctx context.Context, id int64) (*domain.Entity, error)
}

// DatasetRepository определяет методы для справочника datasets
type DatasetRepository interface {
	// List returns every known dataset.
	List(ctx context.Context) ([]domain.Dataset, error)

	// UnknownDatasets returns the subset of names that do not exist.
	UnknownDatasets(ctx context.Context, names []string) ([]string, error)
}

// RedirectRepository resolves retired entity ids. A nil Redirect with a nil
// error means "no redirect, proceed as a normal lookup".
type RedirectRepository interface {
	GetRedirect(ctx context.Context, id int64) (*domain.Redirect, error)
}
