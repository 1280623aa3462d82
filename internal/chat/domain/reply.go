package domain

import (
	"encoding/json"

	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
)

// ============================================================
// ChatReply — o envelope devolvido pelo POST /v1/chat
// ============================================================

// ReplyKind é o campo "type" da resposta.
type ReplyKind string

const (
	ReplyFaq           ReplyKind = "faq"
	ReplyProductSearch ReplyKind = "product_search"
	ReplyError         ReplyKind = "error"
)

// ChatRequest é o body do POST /v1/chat.
type ChatRequest struct {
	Message *string `json:"message"`
}

// FaqPayload é a FAQ resolvida, sem as keywords internas.
type FaqPayload struct {
	Key      string `json:"key"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ChatReply nunca é parcialmente preenchida: use os construtores abaixo.
type ChatReply struct {
	Success  bool
	Type     ReplyKind
	Reply    string
	Faq      *FaqPayload
	Products []maindomain.Product
}

// NewFaqReply monta a resposta de sucesso para uma FAQ resolvida.
func NewFaqReply(reply string, entry *FaqEntry) *ChatReply {
	return &ChatReply{
		Success: true,
		Type:    ReplyFaq,
		Reply:   reply,
		Faq: &FaqPayload{
			Key:      entry.Key,
			Question: entry.Question,
			Answer:   entry.Answer,
		},
	}
}

// NewProductReply monta a resposta de sucesso de uma busca (lista pode ser vazia).
func NewProductReply(reply string, products []maindomain.Product) *ChatReply {
	if products == nil {
		products = []maindomain.Product{}
	}
	return &ChatReply{
		Success:  true,
		Type:     ReplyProductSearch,
		Reply:    reply,
		Products: products,
	}
}

// NewErrorReply monta a resposta de falha (400 ou 500, decidido pelo handler).
func NewErrorReply(message string) *ChatReply {
	return &ChatReply{Success: false, Type: ReplyError, Reply: message}
}

// MarshalJSON emite "faq" só para type=faq e "products" (sempre array) só para type=product_search.
func (r *ChatReply) MarshalJSON() ([]byte, error) {
	out := struct {
		Success  bool                 `json:"success"`
		Type     ReplyKind            `json:"type"`
		Reply    string               `json:"reply"`
		Faq      *FaqPayload          `json:"faq,omitempty"`
		Products []maindomain.Product `json:"products,omitempty"`
	}{
		Success: r.Success,
		Type:    r.Type,
		Reply:   r.Reply,
	}

	switch r.Type {
	case ReplyFaq:
		out.Faq = r.Faq
	case ReplyProductSearch:
		if len(r.Products) == 0 {
			// omitempty esconderia a lista vazia
			return json.Marshal(struct {
				Success  bool                 `json:"success"`
				Type     ReplyKind            `json:"type"`
				Reply    string               `json:"reply"`
				Products []maindomain.Product `json:"products"`
			}{r.Success, r.Type, r.Reply, []maindomain.Product{}})
		}
		out.Products = r.Products
	}
	return json.Marshal(out)
}
