package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chatdomain "github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	chatservice "github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	"github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/handler"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"
	"github.com/boddenberg/organic-shop-bfa/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

type mockStore struct {
	products []domain.Product
	users    []*domain.User
	filter   domain.ProductFilter
}

func (m *mockStore) Search(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	m.filter = f
	end := min(len(m.products), f.Offset+f.Limit)
	if f.Limit == 0 {
		end = len(m.products)
	}
	if f.Offset >= end {
		return nil, nil
	}
	return m.products[f.Offset:end], nil
}

func (m *mockStore) Count(context.Context, domain.ProductFilter) (int, error) {
	return len(m.products), nil
}

func (m *mockStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: fmt.Sprint(id)}
}

func (m *mockStore) ListCategories(context.Context, bool) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Rau củ hữu cơ", Slug: "rau-cu-huu-co", IsActive: true}}, nil
}

func (m *mockStore) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	if id != 1 {
		return nil, &domain.ErrNotFound{Resource: "category", ID: fmt.Sprint(id)}
	}
	return &domain.Category{ID: 1, Name: "Rau củ hữu cơ"}, nil
}

func (m *mockStore) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	created := *u
	created.ID = int64(len(m.users) + 1)
	m.users = append(m.users, &created)
	return &created, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: fmt.Sprint(id)}
}

type offlineCompleter struct{}

func (offlineCompleter) ClassifyIntent(context.Context, *chatdomain.CompletionRequest) (string, error) {
	return "", &chatdomain.ErrCompletionDisabled{}
}

func (offlineCompleter) ComposeReply(context.Context, *chatdomain.CompletionRequest) (string, error) {
	return "", &chatdomain.ErrCompletionDisabled{}
}

type noFaqs struct{}

func (noFaqs) Load(context.Context) ([]chatdomain.FaqEntry, error) { return nil, nil }

func newTestRouter(store *mockStore, limiter *handler.RateLimiter) (http.Handler, *observability.Metrics) {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	faqs := chatservice.NewFaqCatalog(noFaqs{}, logger)
	chat := chatservice.NewChatService(
		chatservice.NewIntentClassifier(offlineCompleter{}, faqs, metrics, logger),
		faqs,
		chatservice.NewProductFinder(store),
		chatservice.NewResponseComposer(offlineCompleter{}, metrics, logger),
		metrics,
		logger,
	)
	auth := service.NewAuthService(store, "router-test", 0, 0, logger).WithBcryptCost(bcrypt.MinCost)

	return handler.NewRouter(handler.Services{
		Chat:        chat,
		Catalog:     service.NewCatalogService(store, store, logger),
		Auth:        auth,
		Health:      mockPinger{},
		ChatLimiter: limiter,
	}, metrics, logger), metrics
}

func do(t *testing.T, router http.Handler, method, path, body string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthz_DatabaseDown(t *testing.T) {
	router := handler.NewRouter(handler.Services{Health: mockPinger{err: errors.New("connection refused")}}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var health domain.HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "unhealthy" || len(health.Services) != 2 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestOpsEndpoints(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	for _, path := range []string{"/readyz", "/ping", "/metrics", "/v1/metrics/chat"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestMetrics_ExposesShopCounters(t *testing.T) {
	router, metrics := newTestRouter(&mockStore{}, nil)
	metrics.IncrChatReply("faq")

	rec, _ := do(t, router, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "shop_chat_replies_total") {
		t.Error("expected chat reply counter in exposition")
	}
}

func TestCategories(t *testing.T) {
	router, _ := newTestRouter(&mockStore{}, nil)

	rec, out := do(t, router, http.MethodGet, "/v1/categories", "")
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("expected 200 success, got %d %v", rec.Code, out)
	}
	if data, _ := out["data"].([]any); len(data) != 1 {
		t.Errorf("expected 1 category, got %v", out["data"])
	}

	for _, path := range []string{"/v1/categories/7", "/v1/categories/abc"} {
		rec, _ := do(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestProducts_ListAndQueryParsing(t *testing.T) {
	store := &mockStore{}
	for i := 1; i <= 5; i++ {
		store.products = append(store.products, domain.Product{ID: int64(i), Name: fmt.Sprintf("P%d", i), Images: []domain.ProductImage{}})
	}
	router, _ := newTestRouter(store, nil)

	rec, out := do(t, router, http.MethodGet, "/v1/products?per_page=2&page=2&active=1&category_id=3&min_price=1000&sort_price=ASC&search=P", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	meta, _ := out["meta"].(map[string]any)
	if meta["current_page"] != 2.0 || meta["last_page"] != 3.0 || meta["per_page"] != 2.0 || meta["total"] != 5.0 {
		t.Errorf("unexpected meta %v", meta)
	}
	if data, _ := out["data"].([]any); len(data) != 2 {
		t.Errorf("expected 2 products, got %v", out["data"])
	}

	f := store.filter
	if f.Active == nil || !*f.Active || f.CategoryID == nil || *f.CategoryID != 3 || *f.PriceMin != 1000 || f.NameSearch != "P" {
		t.Errorf("query not forwarded: %+v", f)
	}
	if f.Sort != domain.SortByPriceAsc {
		t.Errorf("expected price asc, got %q", f.Sort)
	}
}

func TestProducts_BadQuery(t *testing.T) {
	router, _ := newTestRouter(&mockStore{}, nil)

	for query, field := range map[string]string{
		"category_id=abc": "category_id",
		"max_price=cheap": "max_price",
		"sort_price=up":   "sort_price",
	} {
		rec, out := do(t, router, http.MethodGet, "/v1/products?"+query, "")
		if rec.Code != http.StatusBadRequest || out["field"] != field {
			t.Errorf("%s: expected 400 on %s, got %d %v", query, field, rec.Code, out)
		}
	}
}

func TestProducts_Get(t *testing.T) {
	router, _ := newTestRouter(&mockStore{products: []domain.Product{{ID: 4, Name: "Mật ong hữu cơ"}}}, nil)

	rec, out := do(t, router, http.MethodGet, "/v1/products/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if data, _ := out["data"].(map[string]any); data["name"] != "Mật ong hữu cơ" {
		t.Errorf("unexpected product %v", out["data"])
	}

	if rec, _ := do(t, router, http.MethodGet, "/v1/products/5", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	router, _ := newTestRouter(&mockStore{}, nil)

	rec, out := do(t, router, http.MethodPost, "/v1/auth/register",
		`{"name":"Trần Thị B","email":"b@example.com","password":"secret1","password_confirmation":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["message"] != "Đăng ký thành công." {
		t.Errorf("unexpected message %v", out["message"])
	}
	data, _ := out["data"].(map[string]any)
	user, _ := data["user"].(map[string]any)
	if _, leaked := user["password_hash"]; leaked || user["email"] != "b@example.com" {
		t.Errorf("unexpected user payload %v", user)
	}

	rec, out = do(t, router, http.MethodPost, "/v1/auth/login", `{"email":"b@example.com","password":"secret1","remember_me":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, _ = out["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" || data["expires_at"] == nil {
		t.Fatalf("expected token and expiry, got %v", data)
	}

	rec, out = do(t, router, http.MethodGet, "/v1/auth/me", "", "Authorization", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if me, _ := out["data"].(map[string]any); me["name"] != "Trần Thị B" {
		t.Errorf("unexpected me payload %v", out["data"])
	}
}

func TestAuthErrors(t *testing.T) {
	router, _ := newTestRouter(&mockStore{}, nil)

	rec, out := do(t, router, http.MethodPost, "/v1/auth/register", `{"name":"B","email":"b@example.com","password":"12345","password_confirmation":"12345"}`)
	if rec.Code != http.StatusBadRequest || out["field"] != "password" {
		t.Errorf("expected password validation 400, got %d %v", rec.Code, out)
	}

	rec, out = do(t, router, http.MethodPost, "/v1/auth/login", `{"email":"nobody@example.com","password":"secret1"}`)
	if rec.Code != http.StatusUnauthorized || out["error"] != service.MsgInvalidCredentials {
		t.Errorf("expected 401 invalid credentials, got %d %v", rec.Code, out)
	}

	if rec, _ := do(t, router, http.MethodPost, "/v1/auth/login", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on bad body, got %d", rec.Code)
	}

	for name, auth := range map[string]string{
		"missing": "",
		"scheme":  "Token abc",
		"garbage": "Bearer abc.def.ghi",
	} {
		var headers []string
		if auth != "" {
			headers = []string{"Authorization", auth}
		}
		if rec, _ := do(t, router, http.MethodGet, "/v1/auth/me", "", headers...); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestChat_RateLimited(t *testing.T) {
	router, _ := newTestRouter(&mockStore{}, handler.NewRateLimiter(1, 1))

	rec, out := do(t, router, http.MethodPost, "/v1/chat", `{"message":"táo"}`)
	if rec.Code != http.StatusOK || out["type"] != "product_search" {
		t.Fatalf("expected product reply, got %d %v", rec.Code, out)
	}

	rec, _ = do(t, router, http.MethodPost, "/v1/chat", `{"message":"táo"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}

	rec, _ = do(t, router, http.MethodPost, "/v1/chat", `{"message":"táo"}`, "X-Real-IP", "10.1.1.9")
	if rec.Code != http.StatusOK {
		t.Errorf("other clients keep their own budget, got %d", rec.Code)
	}

	rec, _ = do(t, router, http.MethodGet, "/v1/chat/faqs", "")
	if rec.Code != http.StatusOK {
		t.Errorf("faq listing is not rate limited, got %d", rec.Code)
	}
}
