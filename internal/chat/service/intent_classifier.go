package service

import (
	"context"
	"strings"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/port"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// IntentClassifier — LLM com fallback por palavras-chave
// ============================================================

// faqTriggers são frases (vi/en) que indicam uma pergunta de FAQ.
// Só disparam faq se FindByKeywords também achar uma entrada.
var faqTriggers = []string{
	"giao hàng", "thời gian", "bao lâu", "shipping", "delivery",
	"thanh toán", "payment", "cod", "chuyển khoản",
	"đổi trả", "return", "refund", "hoàn tiền",
	"giờ mở cửa", "mở cửa", "store hours",
	"chứng nhận", "hữu cơ", "organic", "certification",
	"phí vận chuyển", "phí ship", "shipping fee",
	"chất lượng", "quality",
	"liên hệ", "contact", "hotline", "email", "địa chỉ",
}

type IntentClassifier struct {
	completer port.Completer
	faqs      *FaqCatalog
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewIntentClassifier(completer port.Completer, faqs *FaqCatalog, metrics *observability.Metrics, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{completer: completer, faqs: faqs, metrics: metrics, logger: logger}
}

// Classify nunca falha: qualquer problema na chamada remota (ou um objeto
// estruturalmente inválido) cai em GuessFromKeywords.
func (c *IntentClassifier) Classify(ctx context.Context, message string) domain.Intent {
	ctx, span := chatTracer.Start(ctx, "IntentClassifier.Classify")
	defer span.End()

	intent := withFallback(ctx, observability.StageClassifyIntent,
		func(ctx context.Context) (domain.Intent, error) {
			raw, err := c.completer.ClassifyIntent(ctx, intentPrompt(message, c.faqs.Keys(ctx)))
			if err != nil {
				return domain.Intent{}, err
			}
			return domain.ParseIntent([]byte(strings.TrimSpace(raw)))
		},
		func() domain.Intent { return c.GuessFromKeywords(ctx, message) },
		c.metrics, c.logger,
	)

	span.SetAttributes(attribute.String("chat.intent", string(intent.Kind)))
	return intent
}

// GuessFromKeywords é a classificação determinística.
func (c *IntentClassifier) GuessFromKeywords(ctx context.Context, message string) domain.Intent {
	lower := strings.ToLower(message)

	for _, trigger := range faqTriggers {
		if !strings.Contains(lower, trigger) {
			continue
		}
		if entry := c.faqs.FindByKeywords(ctx, message); entry != nil {
			return domain.NewFaqIntent(entry.Key)
		}
		// FindByKeywords não depende do trigger: se não achou agora, não acha depois.
		break
	}

	return domain.NewProductSearchIntent(domain.KeywordsFromMessage(message))
}
