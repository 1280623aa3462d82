// Package service — chat_service.go implementa o ChatService.
//
// ============================================================
// ARQUITETURA — pipeline com fallback em todas as etapas
// ============================================================
//
// O ChatService é o orquestrador da rota POST /v1/chat.
//
// Estados:
//
//	Received → IntentResolved → HandlingFaq | HandlingProductSearch → Composed → Returned
//	                    qualquer falha inesperada → ErrorFallback → HandlingProductSearch
//	                    falha de novo             → FatalError
//
// Fluxo completo:
//  1. Valida a mensagem (não vazia depois do trim, até 1000 caracteres)
//  2. Classifica a intenção (LLM → fallback por palavras-chave)
//  3. Re-check defensivo da tag: desconhecida → product_search{[mensagem]}
//  4. faq: por key, depois por keywords; sem FAQ → degrada para product_search{[mensagem]}
//  5. product_search: keywords vazias → tokeniza a mensagem; busca; compõe
//  6. Erro ou panic nas etapas 2–5 → loga e tenta UMA vez como product_search{[mensagem]}
//  7. Falhou de novo → *domain.ErrPipelineFailure (o handler devolve 500 com desculpa fixa)
package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// chatTracer é o tracer OpenTelemetry para o módulo de chat.
var chatTracer = otel.Tracer("chat/service")

// Classifier produz a intenção de uma mensagem. Implementado por *IntentClassifier.
type Classifier interface {
	Classify(ctx context.Context, message string) domain.Intent
}

// ============================================================
// ChatService — orquestrador
// ============================================================

type ChatService struct {
	classifier Classifier
	faqs       *FaqCatalog
	finder     *ProductFinder
	composer   *ResponseComposer
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewChatService cria o ChatService com as dependências injetadas.
func NewChatService(
	classifier Classifier,
	faqs *FaqCatalog,
	finder *ProductFinder,
	composer *ResponseComposer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		classifier: classifier,
		faqs:       faqs,
		finder:     finder,
		composer:   composer,
		metrics:    metrics,
		logger:     logger,
	}
}

// ProcessMessage é o ponto de entrada do chat.
//
// Erros possíveis:
//   - *maindomain.ErrValidation (via domain.NewValidationError) → 400
//   - *domain.ErrPipelineFailure → 500
func (s *ChatService) ProcessMessage(ctx context.Context, message string) (*domain.ChatReply, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.ProcessMessage")
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > domain.MaxMessageLength {
		return nil, domain.NewValidationError()
	}

	chatID := uuid.NewString()
	span.SetAttributes(attribute.String("chat.id", chatID))
	logger := s.logger.With(zap.String("chat_id", chatID))

	logger.Info("chat message received", zap.Int("message_length", utf8.RuneCountInString(message)))

	reply, err := s.safeRun(ctx, logger, func(ctx context.Context) (*domain.ChatReply, error) {
		return s.handle(ctx, message, s.classify(ctx, message))
	})
	if err != nil {
		logger.Error("chat pipeline failed, retrying as product search", zap.Error(err))
		s.metrics.IncrPipelineRetry()

		first := err
		reply, err = s.safeRun(ctx, logger, func(ctx context.Context) (*domain.ChatReply, error) {
			return s.handleProductSearch(ctx, message, domain.NewProductSearchIntent([]string{message}))
		})
		if err != nil {
			logger.Error("chat pipeline retry failed", zap.NamedError("first", first), zap.Error(err))
			span.SetStatus(codes.Error, "pipeline failure")
			s.metrics.IncrChatReply(string(domain.ReplyError))
			return nil, &domain.ErrPipelineFailure{First: first, Second: err}
		}
	}

	s.metrics.IncrChatReply(string(reply.Type))
	span.SetAttributes(attribute.String("chat.reply_type", string(reply.Type)))
	logger.Info("chat reply sent", zap.String("type", string(reply.Type)))
	return reply, nil
}

// ListFaqs devolve o documento de FAQ inteiro (GET /v1/chat/faqs).
func (s *ChatService) ListFaqs(ctx context.Context) []domain.FaqEntry {
	ctx, span := chatTracer.Start(ctx, "ChatService.ListFaqs")
	defer span.End()

	return s.faqs.LoadAll(ctx)
}

// classify aplica o re-check defensivo sobre a intenção do Classifier.
func (s *ChatService) classify(ctx context.Context, message string) domain.Intent {
	intent := s.classifier.Classify(ctx, message)
	if !intent.IsValid() {
		s.logger.Warn("classifier returned unknown intent, using product search",
			zap.String("intent", string(intent.Kind)))
		return domain.NewProductSearchIntent([]string{message})
	}
	return intent
}

func (s *ChatService) handle(ctx context.Context, message string, intent domain.Intent) (*domain.ChatReply, error) {
	if intent.Kind == domain.IntentFaq {
		return s.handleFaq(ctx, message, intent)
	}
	return s.handleProductSearch(ctx, message, intent)
}

func (s *ChatService) handleFaq(ctx context.Context, message string, intent domain.Intent) (*domain.ChatReply, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.handleFaq")
	defer span.End()

	var entry *domain.FaqEntry
	if intent.HasFaqKey() {
		entry = s.faqs.FindByKey(ctx, *intent.FaqKey)
	}
	if entry == nil {
		entry = s.faqs.FindByKeywords(ctx, message)
	}
	if entry == nil {
		s.logger.Debug("no faq entry resolved, degrading to product search")
		return s.handleProductSearch(ctx, message, domain.NewProductSearchIntent([]string{message}))
	}

	span.SetAttributes(attribute.String("faq.key", entry.Key))
	reply := s.composer.ComposeFaqReply(ctx, message, entry)
	return domain.NewFaqReply(reply, entry), nil
}

func (s *ChatService) handleProductSearch(ctx context.Context, message string, intent domain.Intent) (*domain.ChatReply, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.handleProductSearch")
	defer span.End()

	keywords := intent.Keywords
	if len(keywords) == 0 {
		keywords = domain.KeywordsFromMessage(message)
	}

	products, err := s.finder.Search(ctx, keywords, intent.CategoryID, intent.PriceMin, intent.PriceMax)
	if err != nil {
		return nil, fmt.Errorf("product search: %w", err)
	}

	reply := s.composer.ComposeProductReply(ctx, message, products, keywords)
	return domain.NewProductReply(reply, products), nil
}

// safeRun executa fn convertendo panic em erro (com stack no log).
func (s *ChatService) safeRun(
	ctx context.Context,
	logger *zap.Logger,
	fn func(ctx context.Context) (*domain.ChatReply, error),
) (reply *domain.ChatReply, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in chat pipeline", zap.Any("panic", r), zap.Stack("stack"))
			reply, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
