// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ProductStore reads the product catalog.
// Implemented by the SQL adapter (SQLite or Postgres).
type ProductStore interface {
	// Search returns enriched products (category + images) matching filter.
	Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	// Count returns how many products match filter, ignoring Limit/Offset.
	Count(ctx context.Context, filter domain.ProductFilter) (int, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// CategoryStore reads product categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
}

// UserStore persists storefront accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	// GetUserByEmail returns (nil, nil) when no account matches.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// HealthChecker is implemented by dependencies that can report liveness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
