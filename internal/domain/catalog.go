package domain

import "time"

// ============================================================
// Catalog — categories, products and images
// ============================================================

// Category groups products on the storefront.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductImage is one picture attached to a product.
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"-"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
}

// Product is the enriched product row returned by the store: the category and
// images are loaded alongside the product itself.
type Product struct {
	ID           int64          `json:"id"`
	CategoryID   *int64         `json:"-"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Price        float64        `json:"price"`
	Description  *string        `json:"description"`
	IsActive     bool           `json:"is_active"`
	Category     *Category      `json:"category"`
	Images       []ProductImage `json:"images"`
	PrimaryImage *string        `json:"primary_image"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ProductSummary is the read-only projection used to build prompts and
// fallback replies.
type ProductSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// Summary projects the product into a ProductSummary.
func (p *Product) Summary() ProductSummary {
	s := ProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
	}
	if p.Category != nil {
		name := p.Category.Name
		s.Category = &name
	}
	return s
}

// ProductSort selects the ordering of a product query.
type ProductSort string

const (
	SortByID        ProductSort = ""
	SortNewest      ProductSort = "newest"
	SortByPriceAsc  ProductSort = "price_asc"
	SortByPriceDesc ProductSort = "price_desc"
)

// ProductFilter is the query contract of the product store. Nil pointers and
// empty keyword lists impose no constraint.
type ProductFilter struct {
	// Keywords are AND-ed; each must appear in name OR description.
	Keywords []string

	// NameSearch matches a substring of the product name only.
	NameSearch string

	CategoryID *int64
	PriceMin   *float64
	PriceMax   *float64

	// Active filters on is_active when set.
	Active *bool

	Sort ProductSort

	Limit  int
	Offset int
}

// ============================================================
// Listing / pagination
// ============================================================

// PageMeta mirrors the paginator metadata of the storefront API.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// ProductPage is one page of the public product listing.
type ProductPage struct {
	Products []Product
	Meta     PageMeta
}

// ProductListParams carries the public listing query of GET /v1/products.
// Zero values mean "not provided".
type ProductListParams struct {
	Active     *bool
	CategoryID *int64
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	// SortPrice is "asc", "desc" or empty (newest first).
	SortPrice string
	Page      int
	PerPage   int
}
