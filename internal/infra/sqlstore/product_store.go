package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const productColumns = `p.id, p.category_id, p.name, p.slug, p.price, p.description, p.is_active, p.created_at, p.updated_at`

// --- Product queries (implements port.ProductStore) ---

// Search returns the products matching filter, enriched with category and images.
//
// Every non-blank keyword must appear (ignoring case) in the name OR the
// description; category and inclusive price bounds are independent filters.
func (s *Store) Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Store.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("filter.keywords", len(filter.Keywords)),
		attribute.Int("filter.limit", filter.Limit),
	)

	where, args := s.whereClause(filter)
	query := "SELECT " + productColumns + " FROM products p" + where + orderClause(filter.Sort)
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var products []domain.Product
	err := s.withRetry(ctx, "search_products", func() error {
		var err error
		products, err = s.queryProducts(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	if err := s.enrich(ctx, products); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, nil
}

// Count returns how many products match filter, ignoring Limit and Offset.
func (s *Store) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	ctx, span := tracer.Start(ctx, "Store.Count")
	defer span.End()

	where, args := s.whereClause(filter)
	query := s.dialect.rebind("SELECT COUNT(*) FROM products p" + where)

	var total int
	err := s.withRetry(ctx, "count_products", func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// GetProduct returns one product with category and images.
func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Store.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))

	query := "SELECT " + productColumns + " FROM products p WHERE p.id = ?"

	var products []domain.Product
	err := s.withRetry(ctx, "get_product", func() error {
		var err error
		products, err = s.queryProducts(ctx, query, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(products) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
	}

	if err := s.enrich(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (s *Store) whereClause(f domain.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Active != nil {
		conds = append(conds, "p.is_active = ?")
		args = append(args, *f.Active)
	}
	for _, kw := range f.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		kw = strings.ToLower(kw)
		conds = append(conds, "("+s.dialect.containsFold("p.name")+" OR "+s.dialect.containsFold("COALESCE(p.description, '')")+")")
		args = append(args, kw, kw)
	}
	if f.NameSearch != "" {
		conds = append(conds, s.dialect.lower("p.name")+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.NameSearch))+"%")
	}
	if f.CategoryID != nil {
		conds = append(conds, "p.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.PriceMin != nil {
		conds = append(conds, "p.price >= ?")
		args = append(args, *f.PriceMin)
	}
	if f.PriceMax != nil {
		conds = append(conds, "p.price <= ?")
		args = append(args, *f.PriceMax)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort domain.ProductSort) string {
	switch sort {
	case domain.SortNewest:
		return " ORDER BY p.created_at DESC, p.id DESC"
	case domain.SortByPriceAsc:
		return " ORDER BY p.price ASC, p.id ASC"
	case domain.SortByPriceDesc:
		return " ORDER BY p.price DESC, p.id ASC"
	default:
		return " ORDER BY p.id ASC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// queryProducts reads all rows before returning so the connection is free
// for the enrichment queries.
func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p                    domain.Product
			categoryID           sql.NullInt64
			description          sql.NullString
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&p.ID, &categoryID, &p.Name, &p.Slug, &p.Price, &description,
			&p.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.Int64
			p.CategoryID = &id
		}
		if description.Valid {
			d := description.String
			p.Description = &d
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		p.Images = []domain.ProductImage{}
		products = append(products, p)
	}
	return products, rows.Err()
}

// enrich loads categories and images for products concurrently.
func (s *Store) enrich(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "Store.enrich")
	defer span.End()

	productIDs := make([]any, 0, len(products))
	categorySet := make(map[int64]struct{})
	categoryIDs := make([]any, 0)
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		if p.CategoryID != nil {
			if _, seen := categorySet[*p.CategoryID]; !seen {
				categorySet[*p.CategoryID] = struct{}{}
				categoryIDs = append(categoryIDs, *p.CategoryID)
			}
		}
	}

	var (
		categories map[int64]*domain.Category
		images     map[int64][]domain.ProductImage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.categoriesByID(gctx, categoryIDs)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		images, err = s.imagesByProduct(gctx, productIDs)
		if err != nil {
			return fmt.Errorf("load product images: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range products {
		p := &products[i]
		if p.CategoryID != nil {
			p.Category = categories[*p.CategoryID]
		}
		if imgs, ok := images[p.ID]; ok {
			p.Images = imgs
		}
		for _, img := range p.Images {
			if img.IsPrimary {
				url := img.URL
				p.PrimaryImage = &url
				break
			}
		}
	}
	return nil
}

func (s *Store) categoriesByID(ctx context.Context, ids []any) (map[int64]*domain.Category, error) {
	out := make(map[int64]*domain.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := "SELECT " + categoryColumns + " FROM categories c WHERE c.id IN (" + placeholders(len(ids)) + ")"

	var list []domain.Category
	err := s.withRetry(ctx, "categories_by_id", func() error {
		var err error
		list, err = s.queryCategories(ctx, query, ids...)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range list {
		c := list[i]
		out[c.ID] = &c
	}
	return out, nil
}

func (s *Store) imagesByProduct(ctx context.Context, productIDs []any) (map[int64][]domain.ProductImage, error) {
	query := s.dialect.rebind(`SELECT id, product_id, image_url, is_primary FROM product_images
		WHERE product_id IN (` + placeholders(len(productIDs)) + `) ORDER BY product_id, id`)

	out := make(map[int64][]domain.ProductImage)
	err := s.withRetry(ctx, "images_by_product", func() error {
		clear(out)
		rows, err := s.db.QueryContext(ctx, query, productIDs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var img domain.ProductImage
			if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsPrimary); err != nil {
				return fmt.Errorf("scan image row: %w", err)
			}
			out[img.ProductID] = append(out[img.ProductID], img)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
