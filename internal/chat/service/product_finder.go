package service

import (
	"context"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/port"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// MaxChatResults limita os produtos devolvidos pelo chat.
const MaxChatResults = 10

// ProductFinder traduz a intenção product_search numa consulta ao store.
// Só produtos ativos; keywords são AND entre si e OR entre nome/descrição.
type ProductFinder struct {
	store port.ProductSearcher
}

func NewProductFinder(store port.ProductSearcher) *ProductFinder {
	return &ProductFinder{store: store}
}

// Search devolve no máximo MaxChatResults produtos já enriquecidos.
// Nenhum resultado → slice vazio, sem erro.
func (f *ProductFinder) Search(
	ctx context.Context,
	keywords []string,
	categoryID *int64,
	priceMin, priceMax *float64,
) ([]maindomain.Product, error) {
	ctx, span := chatTracer.Start(ctx, "ProductFinder.Search")
	defer span.End()

	active := true
	products, err := f.store.Search(ctx, maindomain.ProductFilter{
		Keywords:   keywords,
		CategoryID: categoryID,
		PriceMin:   priceMin,
		PriceMax:   priceMax,
		Active:     &active,
		Limit:      MaxChatResults,
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []maindomain.Product{}
	}

	span.SetAttributes(attribute.Int("products.found", len(products)))
	return products, nil
}
