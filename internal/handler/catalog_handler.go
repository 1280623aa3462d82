package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Catalog — categories and products (public)
// ============================================================

func listCategoriesHandler(catalogSvc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		categories, err := catalogSvc.ListCategories(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if categories == nil {
			categories = []domain.Category{}
		}

		writeData(w, http.StatusOK, categories)
	}
}

func getCategoryHandler(catalogSvc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories/{id}")
		defer span.End()

		id, err := idParam(r, "id", "category")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		category, err := catalogSvc.GetCategory(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeData(w, http.StatusOK, category)
	}
}

func listProductsHandler(catalogSvc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products")
		defer span.End()

		params, err := parseProductListParams(r.URL.Query())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, err := catalogSvc.ListProducts(ctx, params)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int("products.returned", len(page.Products)))
		products := page.Products
		if products == nil {
			products = []domain.Product{}
		}
		writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: products, Meta: page.Meta})
	}
}

func getProductHandler(catalogSvc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products/{id}")
		defer span.End()

		id, err := idParam(r, "id", "product")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		product, err := catalogSvc.GetProduct(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeData(w, http.StatusOK, product)
	}
}

// parseProductListParams reads the listing query string. Empty values are
// ignored; malformed numbers are rejected, except page and per_page which
// fall back to their defaults.
func parseProductListParams(q url.Values) (domain.ProductListParams, error) {
	var p domain.ProductListParams

	if v := q.Get("active"); v != "" {
		active := parseBool(v)
		p.Active = &active
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, &domain.ErrValidation{Field: "category_id", Message: "category_id không hợp lệ."}
		}
		p.CategoryID = &id
	}
	p.Search = q.Get("search")

	var err error
	if p.MinPrice, err = priceParam(q, "min_price"); err != nil {
		return p, err
	}
	if p.MaxPrice, err = priceParam(q, "max_price"); err != nil {
		return p, err
	}

	p.SortPrice = strings.ToLower(q.Get("sort_price"))
	p.Page, _ = strconv.Atoi(q.Get("page"))
	p.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return p, nil
}

func priceParam(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &domain.ErrValidation{Field: name, Message: name + " không hợp lệ."}
	}
	return &f, nil
}

// parseBool accepts the truthy spellings a storefront form may send.
func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
