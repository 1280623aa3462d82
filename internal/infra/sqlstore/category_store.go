package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

const categoryColumns = `c.id, c.name, c.slug, c.description, c.is_active, c.created_at, c.updated_at`

// --- Category queries (implements port.CategoryStore) ---

// ListCategories returns categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Store.ListCategories")
	defer span.End()

	query := "SELECT " + categoryColumns + " FROM categories c"
	var args []any
	if activeOnly {
		query += " WHERE c.is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY c.name ASC, c.id ASC"

	var list []domain.Category
	err := s.withRetry(ctx, "list_categories", func() error {
		var err error
		list, err = s.queryCategories(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return list, nil
}

// GetCategory returns one category or *domain.ErrNotFound.
func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Store.GetCategory")
	defer span.End()
	span.SetAttributes(attribute.Int64("category.id", id))

	query := "SELECT " + categoryColumns + " FROM categories c WHERE c.id = ?"

	var list []domain.Category
	err := s.withRetry(ctx, "get_category", func() error {
		var err error
		list, err = s.queryCategories(ctx, query, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if len(list) == 0 {
		return nil, &domain.ErrNotFound{Resource: "category", ID: strconv.FormatInt(id, 10)}
	}
	return &list[0], nil
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]domain.Category, 0)
	for rows.Next() {
		var (
			c                    domain.Category
			description          sql.NullString
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &description, &c.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		c.Description = description.String
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		list = append(list, c)
	}
	return list, rows.Err()
}
