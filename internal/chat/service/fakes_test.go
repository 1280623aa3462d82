package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"go.uber.org/zap"
)

// --- Completer double ---

type fakeCompleter struct {
	mu           sync.Mutex
	classify     func(req *domain.CompletionRequest) (string, error)
	compose      func(req *domain.CompletionRequest) (string, error)
	classifyReqs []*domain.CompletionRequest
	composeReqs  []*domain.CompletionRequest
}

var errOutage = errors.New("dial tcp: connection refused")

// outageCompleter simula o provedor fora do ar.
func outageCompleter() *fakeCompleter {
	fail := func(*domain.CompletionRequest) (string, error) { return "", errOutage }
	return &fakeCompleter{classify: fail, compose: fail}
}

func (f *fakeCompleter) ClassifyIntent(_ context.Context, req *domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.classifyReqs = append(f.classifyReqs, req)
	f.mu.Unlock()
	if f.classify == nil {
		return "", &domain.ErrCompletionDisabled{}
	}
	return f.classify(req)
}

func (f *fakeCompleter) ComposeReply(_ context.Context, req *domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.composeReqs = append(f.composeReqs, req)
	f.mu.Unlock()
	if f.compose == nil {
		return "", &domain.ErrCompletionDisabled{}
	}
	return f.compose(req)
}

// --- FAQ source double ---

type staticFaqs struct {
	entries []domain.FaqEntry
	err     error
}

func (s *staticFaqs) Load(context.Context) ([]domain.FaqEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

var testFaqs = []domain.FaqEntry{
	{Key: "shipping_time", Question: "Giao hàng mất bao lâu?", Answer: "Đơn hàng được giao trong 2-3 ngày làm việc.", Keywords: []string{"giao hàng", "bao lâu", "shipping"}},
	{Key: "payment_methods", Question: "Có những hình thức thanh toán nào?", Answer: "COD, chuyển khoản và thẻ.", Keywords: []string{"thanh toán", "cod", "chuyển khoản"}},
	{Key: "return_policy", Question: "Chính sách đổi trả thế nào?", Answer: "Bạn có thể đổi trả trong vòng 7 ngày.", Keywords: []string{"đổi trả", "hoàn tiền", "return"}},
}

// --- Product store double ---

// memoryStore aplica as mesmas regras do store SQL sobre uma lista em memória.
type memoryStore struct {
	mu       sync.Mutex
	products []maindomain.Product
	err      error
	filters  []maindomain.ProductFilter
}

func (m *memoryStore) Search(_ context.Context, f maindomain.ProductFilter) ([]maindomain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, f)
	if m.err != nil {
		return nil, m.err
	}

	out := []maindomain.Product{}
	for _, p := range m.products {
		if f.Active != nil && p.IsActive != *f.Active {
			continue
		}
		if !matchesKeywords(p, f.Keywords) {
			continue
		}
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if f.PriceMin != nil && p.Price < *f.PriceMin {
			continue
		}
		if f.PriceMax != nil && p.Price > *f.PriceMax {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) lastFilter() maindomain.ProductFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filters[len(m.filters)-1]
}

func matchesKeywords(p maindomain.Product, keywords []string) bool {
	name := strings.ToLower(p.Name)
	desc := ""
	if p.Description != nil {
		desc = strings.ToLower(*p.Description)
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if !strings.Contains(name, kw) && !strings.Contains(desc, kw) {
			return false
		}
	}
	return true
}

func product(id int64, name string, price float64, description string) maindomain.Product {
	p := maindomain.Product{ID: id, Name: name, Price: price, IsActive: true, Images: []maindomain.ProductImage{}}
	if description != "" {
		p.Description = &description
	}
	return p
}

// --- wiring ---

type pipeline struct {
	svc       *service.ChatService
	completer *fakeCompleter
	store     *memoryStore
	metrics   *observability.Metrics
}

func newPipeline(completer *fakeCompleter, faqs []domain.FaqEntry, products []maindomain.Product) *pipeline {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := &memoryStore{products: products}

	catalog := service.NewFaqCatalog(&staticFaqs{entries: faqs}, logger)
	classifier := service.NewIntentClassifier(completer, catalog, metrics, logger)
	svc := service.NewChatService(
		classifier,
		catalog,
		service.NewProductFinder(store),
		service.NewResponseComposer(completer, metrics, logger),
		metrics,
		logger,
	)
	return &pipeline{svc: svc, completer: completer, store: store, metrics: metrics}
}
