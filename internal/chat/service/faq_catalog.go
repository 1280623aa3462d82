package service

import (
	"context"
	"strings"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/chat/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// FaqCatalog — lookup de FAQ por key e por palavras-chave
// ============================================================
//
// Cada lookup relê a fonte (que pode ter cache próprio). Erro de leitura
// nunca sobe: vira lista vazia + log.

type FaqCatalog struct {
	source port.FaqSource
	logger *zap.Logger
}

func NewFaqCatalog(source port.FaqSource, logger *zap.Logger) *FaqCatalog {
	return &FaqCatalog{source: source, logger: logger}
}

// LoadAll devolve todas as entradas na ordem do documento.
func (c *FaqCatalog) LoadAll(ctx context.Context) []domain.FaqEntry {
	ctx, span := chatTracer.Start(ctx, "FaqCatalog.LoadAll")
	defer span.End()

	entries, err := c.source.Load(ctx)
	if err != nil {
		c.logger.Error("failed to load faq document", zap.Error(err))
		return []domain.FaqEntry{}
	}
	span.SetAttributes(attribute.Int("faq.count", len(entries)))
	return entries
}

// FindByKey busca por key exata. Com keys duplicadas, vence a primeira.
func (c *FaqCatalog) FindByKey(ctx context.Context, key string) *domain.FaqEntry {
	for _, entry := range c.LoadAll(ctx) {
		if entry.Key == key {
			found := entry
			return &found
		}
	}
	return nil
}

// FindByKeywords pontua cada entrada pelo número de keywords contidas na
// mensagem (case-insensitive). Vence a maior pontuação estritamente; empate
// fica com a primeira do documento; pontuação zero → nil.
func (c *FaqCatalog) FindByKeywords(ctx context.Context, message string) *domain.FaqEntry {
	lowerMsg := strings.ToLower(message)

	var best *domain.FaqEntry
	bestScore := 0
	for _, entry := range c.LoadAll(ctx) {
		score := 0
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lowerMsg, kw) {
				score++
			}
		}
		if score > bestScore {
			found := entry
			best = &found
			bestScore = score
		}
	}
	return best
}

// Keys lista as keys do documento, ou DefaultFaqKeys quando ele está vazio.
func (c *FaqCatalog) Keys(ctx context.Context) []string {
	entries := c.LoadAll(ctx)
	if len(entries) == 0 {
		return DefaultFaqKeys
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}
