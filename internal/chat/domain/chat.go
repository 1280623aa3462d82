// Package domain — chat.go define os tipos usados pela rota POST /v1/chat.
//
// Essa rota é a "porta de entrada" do assistente da loja. O fluxo completo:
//  1. Cliente manda {"message": "..."} → handler valida
//  2. ChatService classifica a intenção (LLM, com fallback por palavras-chave)
//  3. Intenção faq → busca a FAQ (por key, depois por keywords)
//  4. Intenção product_search → busca produtos ativos no store
//  5. ResponseComposer escreve a resposta (LLM, com fallback por template)
//  6. Handler devolve {success, type, reply, faq?|products?}
package domain

import (
	"fmt"

	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
)

// MaxMessageLength é o limite de caracteres (runes) da mensagem do cliente.
const MaxMessageLength = 1000

// ============================================================
// Mensagens fixas exibidas ao cliente (vi-VN)
// ============================================================

const (
	// MsgEmptyMessage é devolvida com 400 quando a mensagem é vazia ou longa demais.
	MsgEmptyMessage = "Xin lỗi, bạn vui lòng nhập câu hỏi."

	// MsgPipelineFailure é devolvida com 500 quando até o retry como product_search falhou.
	MsgPipelineFailure = "Xin lỗi, tôi không thể xử lý câu hỏi này. Vui lòng thử lại hoặc liên hệ với chúng tôi."

	// MsgFaqNoAnswer substitui uma FAQ sem answer.
	MsgFaqNoAnswer = "Xin lỗi, tôi không thể trả lời câu hỏi này."

	// MsgNoProducts é o template de zero produtos encontrados.
	MsgNoProducts = "Xin lỗi, hiện tại chúng tôi chưa có sản phẩm phù hợp với yêu cầu của bạn. Bạn có thể thử tìm kiếm với từ khóa khác hoặc liên hệ với chúng tôi để được tư vấn."
)

// ============================================================
// FAQ
// ============================================================

// FaqEntry é uma entrada do documento de FAQ ({"faqs": [...]}).
// Keywords só servem para o match case-insensitive.
type FaqEntry struct {
	Key      string   `json:"key"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// ============================================================
// Completion — contrato neutro entre o service e o provedor LLM
// ============================================================

// CompletionRequest carrega as duas mensagens (system + user) de uma chamada.
// Temperatura, max tokens e modo JSON ficam a cargo de cada capability do Completer.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// ============================================================
// Erros do chat
// ============================================================

// ErrCompletionDisabled indica que não há credencial configurada para o LLM.
// Nunca chega ao cliente: sempre cai no fallback determinístico.
type ErrCompletionDisabled struct{}

func (e *ErrCompletionDisabled) Error() string {
	return "completion disabled: no API key configured"
}

// ErrPipelineFailure indica que o pipeline falhou duas vezes (fluxo normal +
// retry forçado como product_search). O handler responde 500 com MsgPipelineFailure.
type ErrPipelineFailure struct {
	First  error
	Second error
}

func (e *ErrPipelineFailure) Error() string {
	return fmt.Sprintf("chat pipeline failed: first=%v, retry=%v", e.First, e.Second)
}

func (e *ErrPipelineFailure) Unwrap() error {
	return e.Second
}

// NewValidationError monta o erro de validação da mensagem com o texto fixo do cliente.
func NewValidationError() *maindomain.ErrValidation {
	return &maindomain.ErrValidation{Field: "message", Message: MsgEmptyMessage}
}
