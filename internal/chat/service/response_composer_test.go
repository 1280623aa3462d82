package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"go.uber.org/zap"
)

func newComposer(completer *fakeCompleter) (*service.ResponseComposer, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return service.NewResponseComposer(completer, metrics, zap.NewNop()), metrics
}

func TestComposeFaqReply_Remote(t *testing.T) {
	completer := &fakeCompleter{compose: func(*domain.CompletionRequest) (string, error) {
		return "  Dạ, đơn hàng sẽ tới trong 2-3 ngày ạ.\n", nil
	}}
	c, _ := newComposer(completer)
	entry := &testFaqs[0]

	got := c.ComposeFaqReply(context.Background(), "bao lâu thì nhận hàng?", entry)
	if got != "Dạ, đơn hàng sẽ tới trong 2-3 ngày ạ." {
		t.Errorf("expected trimmed remote text, got %q", got)
	}

	prompt := completer.composeReqs[0].UserPrompt
	if !strings.Contains(prompt, "- Câu trả lời: "+entry.Answer) || !strings.Contains(prompt, `Khách hàng hỏi: "bao lâu thì nhận hàng?"`) {
		t.Errorf("unexpected prompt %q", prompt)
	}
}

func TestComposeFaqReply_FallbackIsAnswerVerbatim(t *testing.T) {
	for name, completer := range map[string]*fakeCompleter{
		"outage":   outageCompleter(),
		"disabled": {},
		"empty":    {compose: func(*domain.CompletionRequest) (string, error) { return "   ", nil }},
	} {
		t.Run(name, func(t *testing.T) {
			c, metrics := newComposer(completer)

			got := c.ComposeFaqReply(context.Background(), "đổi trả", &testFaqs[2])
			if got != testFaqs[2].Answer {
				t.Errorf("expected answer verbatim, got %q", got)
			}
			if metrics.GetChatSnapshot().ComposeFallbacks != 1 {
				t.Error("expected compose fallback to be counted")
			}
		})
	}
}

func TestComposeFaqReply_EmptyAnswer(t *testing.T) {
	c, _ := newComposer(outageCompleter())

	got := c.ComposeFaqReply(context.Background(), "?", &domain.FaqEntry{Key: "k"})
	if got != domain.MsgFaqNoAnswer {
		t.Errorf("expected no-answer text, got %q", got)
	}
}

func TestComposeProductReply_Templates(t *testing.T) {
	c, _ := newComposer(outageCompleter())
	ctx := context.Background()

	if got := c.ComposeProductReply(ctx, "kỳ lân", []maindomain.Product{}, []string{"unicorn_meat"}); got != domain.MsgNoProducts {
		t.Errorf("0 products: got %q", got)
	}

	one := []maindomain.Product{product(1, "Táo hữu cơ", 120000, "")}
	want := "Tôi tìm thấy 1 sản phẩm phù hợp: Táo hữu cơ. Bạn có thể xem chi tiết sản phẩm ở bên dưới."
	if got := c.ComposeProductReply(ctx, "táo", one, nil); got != want {
		t.Errorf("1 product: got %q", got)
	}

	four := []maindomain.Product{
		product(1, "Cà chua hữu cơ", 45000, ""),
		product(2, "Rau xà lách hữu cơ", 25000, ""),
		product(3, "Táo hữu cơ", 120000, ""),
		product(4, "Chuối hữu cơ", 35000, ""),
	}
	want = "Tôi tìm thấy 4 sản phẩm phù hợp, ví dụ: Cà chua hữu cơ, Rau xà lách hữu cơ, Táo hữu cơ. Bạn có thể xem danh sách đầy đủ ở bên dưới."
	if got := c.ComposeProductReply(ctx, "hữu cơ", four, nil); got != want {
		t.Errorf("4 products: got %q", got)
	}
}

func TestComposeProductReply_PromptListsProducts(t *testing.T) {
	completer := &fakeCompleter{compose: func(*domain.CompletionRequest) (string, error) { return "Có ạ!", nil }}
	c, _ := newComposer(completer)

	cat := "Trái cây hữu cơ"
	p := product(3, "Táo hữu cơ", 120000, "Táo giòn ngọt")
	p.Category = &maindomain.Category{Name: cat}

	got := c.ComposeProductReply(context.Background(), "có táo không", []maindomain.Product{p}, nil)
	if got != "Có ạ!" {
		t.Errorf("unexpected reply %q", got)
	}

	req := completer.composeReqs[0]
	if !strings.Contains(req.SystemPrompt, "Only mention products that are provided in the data.") {
		t.Error("unexpected system prompt")
	}
	for _, want := range []string{`"name": "Táo hữu cơ"`, `"category": "Trái cây hữu cơ"`, "Từ khóa tìm kiếm: không có"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Errorf("expected %q in prompt:\n%s", want, req.UserPrompt)
		}
	}
}
