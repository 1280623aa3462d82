package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	maindomain "github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/resilience"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer é o tracer OpenTelemetry para o módulo chat/infra.
var tracer = otel.Tracer("chat/infra")

// ============================================================
// OpenAICompleter — cliente do endpoint chat/completions
// ============================================================
//
// Fala com qualquer provedor compatível com a API da OpenAI (BaseURL configurável).
// Duas capabilities com parâmetros fixos:
//
//	ClassifyIntent → temperature 0.3, max_tokens 200, response_format json_object
//	ComposeReply   → temperature 0.7, max_tokens 500, texto livre
//
// Cada chamada é UMA tentativa com timeout próprio (30s por padrão).
// O circuit breaker corta o provedor quando ele está fora; o bulkhead limita
// quantas chamadas simultâneas saem do processo. Sem retry aqui: quem decide
// o que fazer com a falha é o fallback do ChatService.

const (
	classifyTemperature = 0.3
	classifyMaxTokens   = 200
	composeTemperature  = 0.7
	composeMaxTokens    = 500

	// DefaultModel é o modelo usado quando OPENAI_MODEL não está definido.
	DefaultModel = "gpt-3.5-turbo"
	// DefaultTimeout é o limite de cada chamada remota.
	DefaultTimeout = 30 * time.Second
)

// OpenAIConfig agrupa a configuração do provedor.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // vazio = https://api.openai.com/v1
	Timeout time.Duration
}

type OpenAICompleter struct {
	client   *openai.Client // nil quando não há API key
	model    string
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewOpenAICompleter cria o completer. Com APIKey vazia o completer existe mas
// toda chamada devolve *domain.ErrCompletionDisabled.
func NewOpenAICompleter(
	cfg OpenAIConfig,
	httpClient *http.Client,
	cb *gobreaker.CircuitBreaker,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OpenAICompleter {
	c := &OpenAICompleter{
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		cb:       cb,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		if httpClient != nil {
			oc.HTTPClient = httpClient
		}
		c.client = openai.NewClientWithConfig(oc)
	} else {
		logger.Warn("OPENAI_API_KEY not set, chat replies will use deterministic fallbacks")
	}
	return c
}

// Enabled diz se há credencial configurada.
func (c *OpenAICompleter) Enabled() bool {
	return c.client != nil
}

// ClassifyIntent pede ao modelo um objeto JSON com a intenção.
func (c *OpenAICompleter) ClassifyIntent(ctx context.Context, req *domain.CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAICompleter.ClassifyIntent")
	defer span.End()

	return c.complete(ctx, "classify_intent", req, classifyTemperature, classifyMaxTokens, true)
}

// ComposeReply pede ao modelo uma resposta em texto livre.
func (c *OpenAICompleter) ComposeReply(ctx context.Context, req *domain.CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAICompleter.ComposeReply")
	defer span.End()

	return c.complete(ctx, "compose_reply", req, composeTemperature, composeMaxTokens, false)
}

func (c *OpenAICompleter) complete(
	ctx context.Context,
	op string,
	req *domain.CompletionRequest,
	temperature float32,
	maxTokens int,
	jsonMode bool,
) (string, error) {
	if c.client == nil {
		return "", &domain.ErrCompletionDisabled{}
	}

	// O timeout cobre também a espera no bulkhead.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return "", &maindomain.ErrTimeout{Operation: "openai." + op}
	}
	defer c.bulkhead.Release()

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	result, err := c.cb.Execute(func() (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("completion returned no choices")
		}
		return resp, nil
	})
	c.metrics.RecordRequestDuration("openai."+op, time.Since(start))

	if err != nil {
		c.metrics.IncrExternalError("openai")
		return "", c.mapError(ctx, op, err)
	}

	resp := result.(openai.ChatCompletionResponse)
	c.metrics.RecordTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.total_tokens", resp.Usage.TotalTokens),
	)
	c.logger.Debug("completion ok",
		zap.String("op", op),
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// mapError converte falhas do provedor nos erros tipados do domínio.
func (c *OpenAICompleter) mapError(ctx context.Context, op string, err error) error {
	switch {
	case resilience.IsBreakerRejection(err):
		return &maindomain.ErrCircuitOpen{Service: "openai"}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &maindomain.ErrTimeout{Operation: "openai." + op}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &maindomain.ErrExternalService{
			Service: "openai",
			Err:     fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message),
		}
	}
	return &maindomain.ErrExternalService{Service: "openai", Err: err}
}
