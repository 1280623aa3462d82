package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
)

// ============================================================
// Prompts enviados ao provedor de completion
// ============================================================

const (
	intentSystemPrompt = "You are an intent detection assistant. You must respond with valid JSON only, no additional text."

	faqSystemPrompt = "You are a helpful customer service assistant for an organic food store. Respond naturally and friendly in Vietnamese."

	productSystemPrompt = "You are a helpful customer service assistant for an organic food store. Help customers find products. Respond naturally and friendly in Vietnamese. Only mention products that are provided in the data."
)

// DefaultFaqKeys são as keys oferecidas ao classificador quando o documento de FAQ está vazio.
var DefaultFaqKeys = []string{
	"shipping_time",
	"payment_methods",
	"return_policy",
	"store_hours",
	"organic_certification",
	"shipping_fee",
	"product_quality",
	"contact_info",
}

func intentPrompt(message string, faqKeys []string) *domain.CompletionRequest {
	user := fmt.Sprintf(`Phân tích câu hỏi của khách hàng và trả về JSON với format sau:

Nếu là câu hỏi về FAQ (giao hàng, thanh toán, đổi trả, giờ mở cửa, chứng nhận, phí vận chuyển, chất lượng, liên hệ):
{
  "intent": "faq",
  "faq_key": "shipping_time" (một trong các key: %s)
}

Nếu là câu hỏi tìm kiếm sản phẩm:
{
  "intent": "product_search",
  "keywords": ["từ khóa 1", "từ khóa 2"],
  "category_id": null (hoặc số nếu có),
  "price_min": null (hoặc số nếu có),
  "price_max": null (hoặc số nếu có)
}

Câu hỏi của khách hàng: "%s"

Trả về JSON hợp lệ, không có text thêm:`, strings.Join(faqKeys, ", "), message)

	return &domain.CompletionRequest{SystemPrompt: intentSystemPrompt, UserPrompt: user}
}

func faqPrompt(message string, entry *domain.FaqEntry) *domain.CompletionRequest {
	user := fmt.Sprintf(`Khách hàng hỏi: "%s"

Thông tin FAQ:
- Câu hỏi: %s
- Câu trả lời: %s

Hãy viết lại câu trả lời một cách tự nhiên, thân thiện, bằng tiếng Việt. Bạn chỉ được sử dụng thông tin trong FAQ, không được thêm thông tin khác. Bắt đầu trả lời trực tiếp, không cần lặp lại câu hỏi.`, message, entry.Question, entry.Answer)

	return &domain.CompletionRequest{SystemPrompt: faqSystemPrompt, UserPrompt: user}
}

func productPrompt(message string, products []maindomain.Product, keywords []string) (*domain.CompletionRequest, error) {
	summaries := make([]maindomain.ProductSummary, 0, len(products))
	for i := range products {
		summaries = append(summaries, products[i].Summary())
	}

	// Acentos vietnamitas ficam legíveis no prompt (sem \uXXXX).
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(summaries); err != nil {
		return nil, fmt.Errorf("encode product summaries: %w", err)
	}

	kw := "không có"
	if len(keywords) > 0 {
		kw = strings.Join(keywords, ", ")
	}

	user := fmt.Sprintf(`Khách hàng hỏi: "%s"

Từ khóa tìm kiếm: %s

Danh sách sản phẩm tìm được:
%s

Hãy viết một câu trả lời tự nhiên, thân thiện bằng tiếng Việt để giới thiệu các sản phẩm này cho khách hàng. Chỉ được đề cập đến các sản phẩm trong danh sách trên, không được thêm sản phẩm khác. Nếu có nhiều sản phẩm, hãy giới thiệu một vài sản phẩm nổi bật. Bắt đầu trả lời trực tiếp, không cần lặp lại câu hỏi.`,
		message, kw, strings.TrimRight(buf.String(), "\n"))

	return &domain.CompletionRequest{SystemPrompt: productSystemPrompt, UserPrompt: user}, nil
}
