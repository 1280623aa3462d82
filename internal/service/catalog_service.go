// Package service provides the business logic layer (use cases).
// CatalogService serves the public storefront reads: categories and the
// paginated product listing.
package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var catalogTracer = otel.Tracer("service/catalog")

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// CatalogService orchestrates catalog reads over the SQL store.
type CatalogService struct {
	products   port.ProductStore
	categories port.CategoryStore
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products port.ProductStore, categories port.CategoryStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{products: products, categories: categories, logger: logger}
}

// ============================================================
// Categories
// ============================================================

// ListCategories returns the active categories ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListCategories")
	defer span.End()

	return s.categories.ListCategories(ctx, true)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetCategory")
	defer span.End()
	span.SetAttributes(attribute.Int64("category.id", id))

	return s.categories.GetCategory(ctx, id)
}

// ============================================================
// Products
// ============================================================

// ListProducts runs the public listing query. Page and count are fetched
// concurrently; per_page is clamped to 1..100 and page starts at 1.
func (s *CatalogService) ListProducts(ctx context.Context, params domain.ProductListParams) (*domain.ProductPage, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListProducts")
	defer span.End()

	filter, err := listingFilter(params)
	if err != nil {
		return nil, err
	}

	perPage := params.PerPage
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	perPage = max(1, min(MaxPerPage, perPage))
	page := max(1, params.Page)

	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	var (
		products []domain.Product
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.Search(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.products.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	span.SetAttributes(
		attribute.Int("products.page", page),
		attribute.Int("products.total", total),
	)

	return &domain.ProductPage{
		Products: products,
		Meta: domain.PageMeta{
			CurrentPage: page,
			LastPage:    lastPage,
			PerPage:     perPage,
			Total:       total,
		},
	}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", strconv.FormatInt(id, 10)))

	return s.products.GetProduct(ctx, id)
}

func listingFilter(params domain.ProductListParams) (domain.ProductFilter, error) {
	filter := domain.ProductFilter{
		NameSearch: params.Search,
		CategoryID: params.CategoryID,
		PriceMin:   params.MinPrice,
		PriceMax:   params.MaxPrice,
		Active:     params.Active,
	}

	switch params.SortPrice {
	case "":
		filter.Sort = domain.SortNewest
	case "asc":
		filter.Sort = domain.SortByPriceAsc
	case "desc":
		filter.Sort = domain.SortByPriceDesc
	default:
		return filter, &domain.ErrValidation{Field: "sort_price", Message: "sort_price phải là asc hoặc desc."}
	}
	return filter, nil
}
