// Package handler — chat_handler.go implementa as rotas do assistente da loja:
//
//	POST /v1/chat       → pipeline de intenção + resposta
//	GET  /v1/chat/faqs  → documento de FAQ completo
//
// ============================================================
// CONTRATO DO POST /v1/chat
// ============================================================
//
// Request:
//
//	Content-Type: application/json
//	Body: {"message": "Giao hàng mất bao lâu?"}
//
// Response (200 OK):
//
//	{"success": true, "type": "faq", "reply": "...", "faq": {"key", "question", "answer"}}
//	{"success": true, "type": "product_search", "reply": "...", "products": [...]}
//
// Erros (sempre no mesmo envelope, texto em vietnamita):
//
//	400 → {"success": false, "type": "error", "reply": "Xin lỗi, bạn vui lòng nhập câu hỏi."}
//	500 → {"success": false, "type": "error", "reply": "Xin lỗi, tôi không thể xử lý câu hỏi này. ..."}
//
// O handler é fino: decodifica, delega pro ChatService e traduz o erro.
// Detalhe interno de falha nunca vai pro cliente, só pro log.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// tracer é o tracer OpenTelemetry para o módulo chat/handler.
var tracer = otel.Tracer("chat/handler")

// maxBodyBytes cobre 1000 caracteres de 4 bytes com folga para o JSON.
const maxBodyBytes = 64 << 10

// ============================================================
// ChatHandler — POST /v1/chat
// ============================================================

func ChatHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		// Body inválido, sem "message" ou com tipo errado → mesmo 400 da mensagem vazia
		var req domain.ChatRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Message == nil {
			writeReply(w, http.StatusBadRequest, domain.NewErrorReply(domain.MsgEmptyMessage), logger)
			return
		}

		reply, err := chatSvc.ProcessMessage(ctx, *req.Message)
		if err != nil {
			handleChatError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("chat.reply_type", string(reply.Type)))
		writeReply(w, http.StatusOK, reply, logger)
	}
}

// ============================================================
// FaqListHandler — GET /v1/chat/faqs
// ============================================================

// FaqListHandler devolve {"success": true, "total": N, "faqs": [...]}.
func FaqListHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/chat/faqs")
		defer span.End()

		faqs := chatSvc.ListFaqs(ctx)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"total":   len(faqs),
			"faqs":    faqs,
		}, logger)
	}
}

// ============================================================
// Helpers — funções utilitárias do chat handler
// ============================================================

// writeJSON serializa data como JSON e escreve na response.
// O status já foi enviado quando o encode falha; só resta logar.
func writeJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		logger.Warn("failed to write chat response", zap.Int("status", status), zap.Error(err))
	}
}

func writeReply(w http.ResponseWriter, status int, reply *domain.ChatReply, logger *zap.Logger) {
	writeJSON(w, status, reply, logger)
}

// handleChatError mapeia erros do ChatService para o envelope do chat.
func handleChatError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var valErr *maindomain.ErrValidation
	if errors.As(err, &valErr) {
		writeReply(w, http.StatusBadRequest, domain.NewErrorReply(valErr.Message), logger)
		return
	}

	var pipeErr *domain.ErrPipelineFailure
	if errors.As(err, &pipeErr) {
		logger.Error("chat pipeline failure", zap.NamedError("first", pipeErr.First), zap.NamedError("retry", pipeErr.Second))
	} else {
		logger.Error("unexpected error in chat handler", zap.Error(err))
	}
	writeReply(w, http.StatusInternalServerError, domain.NewErrorReply(domain.MsgPipelineFailure), logger)
}
