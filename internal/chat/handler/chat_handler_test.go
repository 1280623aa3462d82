package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/handler"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type offlineCompleter struct{}

func (offlineCompleter) ClassifyIntent(context.Context, *domain.CompletionRequest) (string, error) {
	return "", &domain.ErrCompletionDisabled{}
}

func (offlineCompleter) ComposeReply(context.Context, *domain.CompletionRequest) (string, error) {
	return "", &domain.ErrCompletionDisabled{}
}

type faqList []domain.FaqEntry

func (f faqList) Load(context.Context) ([]domain.FaqEntry, error) { return f, nil }

type productList struct {
	products []maindomain.Product
	err      error
}

func (p productList) Search(context.Context, maindomain.ProductFilter) ([]maindomain.Product, error) {
	return p.products, p.err
}

func newChatService(store productList) *service.ChatService {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	faqs := service.NewFaqCatalog(faqList{
		{Key: "store_hours", Question: "Cửa hàng mở cửa lúc mấy giờ?", Answer: "Từ 8h đến 21h mỗi ngày.", Keywords: []string{"mở cửa", "giờ"}},
	}, logger)
	return service.NewChatService(
		service.NewIntentClassifier(offlineCompleter{}, faqs, metrics, logger),
		faqs,
		service.NewProductFinder(store),
		service.NewResponseComposer(offlineCompleter{}, metrics, logger),
		metrics,
		logger,
	)
}

func postChat(t *testing.T, svc *service.ChatService, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ChatHandler(svc, zap.NewNop()).ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestChatHandler_BadRequests(t *testing.T) {
	svc := newChatService(productList{})

	for name, body := range map[string]string{
		"empty message":   `{"message": ""}`,
		"blank message":   `{"message": "   "}`,
		"missing message": `{}`,
		"wrong type":      `{"message": 42}`,
		"invalid json":    `{"message":`,
		"too long":        `{"message": "` + strings.Repeat("a", 1001) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, out := postChat(t, svc, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if out["success"] != false || out["type"] != "error" || out["reply"] != domain.MsgEmptyMessage {
				t.Errorf("unexpected body %v", out)
			}
		})
	}
}

func TestChatHandler_FaqReply(t *testing.T) {
	rec, out := postChat(t, newChatService(productList{}), `{"message": "Mấy giờ cửa hàng mở cửa?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["type"] != "faq" || out["reply"] != "Từ 8h đến 21h mỗi ngày." {
		t.Errorf("unexpected body %v", out)
	}
	faq, _ := out["faq"].(map[string]any)
	if faq["key"] != "store_hours" {
		t.Errorf("expected faq payload, got %v", out["faq"])
	}
	if _, ok := faq["keywords"]; ok {
		t.Error("keywords must not be exposed")
	}
	if _, ok := out["products"]; ok {
		t.Error("faq reply must not carry products")
	}
}

func TestChatHandler_ProductReply(t *testing.T) {
	desc := "Mật ong hữu cơ nguyên chất."
	store := productList{products: []maindomain.Product{{ID: 8, Name: "Mật ong hữu cơ", Price: 180000, Description: &desc, IsActive: true}}}

	rec, out := postChat(t, newChatService(store), `{"message": "Mật ong"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["type"] != "product_search" || !strings.Contains(out["reply"].(string), "Mật ong hữu cơ") {
		t.Errorf("unexpected body %v", out)
	}
	products, _ := out["products"].([]any)
	if len(products) != 1 {
		t.Errorf("expected 1 product, got %v", out["products"])
	}
}

func TestChatHandler_PipelineFailure(t *testing.T) {
	rec, out := postChat(t, newChatService(productList{err: errors.New("db down")}), `{"message": "Mật ong"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if out["success"] != false || out["reply"] != domain.MsgPipelineFailure {
		t.Errorf("unexpected body %v", out)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestFaqListHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.FaqListHandler(newChatService(productList{}), zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/chat/faqs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		Success bool              `json:"success"`
		Total   int               `json:"total"`
		Faqs    []domain.FaqEntry `json:"faqs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.Total != 1 || out.Faqs[0].Key != "store_hours" {
		t.Errorf("unexpected body %+v", out)
	}
}

// brokenWriter aceita headers mas falha em todo Write (cliente desconectou).
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = http.Header{}
	}
	return b.header
}

func (b *brokenWriter) WriteHeader(status int) { b.status = status }

func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestChatHandler_WriteFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := &brokenWriter{}

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"giờ mở cửa"}`))
	handler.ChatHandler(newChatService(productList{}), zap.New(core)).ServeHTTP(w, req)

	if w.status != http.StatusOK {
		t.Errorf("expected 200 to be sent, got %d", w.status)
	}
	entries := logs.FilterMessage("failed to write chat response").All()
	if len(entries) != 1 {
		t.Fatalf("expected one write failure log, got %d", len(entries))
	}
	if entries[0].ContextMap()["status"] != int64(http.StatusOK) {
		t.Errorf("expected status field, got %v", entries[0].ContextMap())
	}
}
