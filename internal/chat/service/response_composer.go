package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/port"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"go.uber.org/zap"
)

// ============================================================
// ResponseComposer — texto final da resposta do chat
// ============================================================

var errEmptyCompletion = errors.New("completion returned empty content")

type ResponseComposer struct {
	completer port.Completer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewResponseComposer(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *ResponseComposer {
	return &ResponseComposer{completer: completer, metrics: metrics, logger: logger}
}

// ComposeFaqReply reescreve a resposta da FAQ. Em falha devolve entry.Answer como está.
func (c *ResponseComposer) ComposeFaqReply(ctx context.Context, message string, entry *domain.FaqEntry) string {
	ctx, span := chatTracer.Start(ctx, "ResponseComposer.ComposeFaqReply")
	defer span.End()

	return withFallback(ctx, observability.StageComposeFaq,
		func(ctx context.Context) (string, error) {
			return c.compose(ctx, faqPrompt(message, entry))
		},
		func() string { return faqFallback(entry) },
		c.metrics, c.logger,
	)
}

// ComposeProductReply apresenta os produtos encontrados. Em falha usa o template.
func (c *ResponseComposer) ComposeProductReply(ctx context.Context, message string, products []maindomain.Product, keywords []string) string {
	ctx, span := chatTracer.Start(ctx, "ResponseComposer.ComposeProductReply")
	defer span.End()

	return withFallback(ctx, observability.StageComposeProduct,
		func(ctx context.Context) (string, error) {
			req, err := productPrompt(message, products, keywords)
			if err != nil {
				return "", err
			}
			return c.compose(ctx, req)
		},
		func() string { return productFallback(products) },
		c.metrics, c.logger,
	)
}

func (c *ResponseComposer) compose(ctx context.Context, req *domain.CompletionRequest) (string, error) {
	text, err := c.completer.ComposeReply(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

func faqFallback(entry *domain.FaqEntry) string {
	if entry.Answer == "" {
		return domain.MsgFaqNoAnswer
	}
	return entry.Answer
}

// productFallback: 0 → texto fixo; 1 → nome do produto; 2+ → três primeiros + total.
func productFallback(products []maindomain.Product) string {
	switch n := len(products); {
	case n == 0:
		return domain.MsgNoProducts
	case n == 1:
		return fmt.Sprintf("Tôi tìm thấy 1 sản phẩm phù hợp: %s. Bạn có thể xem chi tiết sản phẩm ở bên dưới.", products[0].Name)
	default:
		names := make([]string, 0, 3)
		for i := 0; i < n && i < 3; i++ {
			names = append(names, products[i].Name)
		}
		return fmt.Sprintf("Tôi tìm thấy %d sản phẩm phù hợp, ví dụ: %s. Bạn có thể xem danh sách đầy đủ ở bên dưới.",
			n, strings.Join(names, ", "))
	}
}
