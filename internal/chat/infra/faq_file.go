package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"
	"github.com/boddenberg/organic-shop-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// FaqFile — documento de FAQ em JSON no disco
// ============================================================
//
// Formato: {"faqs": [{"key", "question", "answer", "keywords"}]}
//
// O documento é relido a cada chamada, mas o parse fica em cache com chave
// path+mtime+size: editar o arquivo invalida o cache sem restart.

type faqDocument struct {
	Faqs []domain.FaqEntry `json:"faqs"`
}

type FaqFile struct {
	path    string
	cache   port.Cache[[]domain.FaqEntry]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewFaqFile cria a fonte de FAQ. cache pode ser nil (sem cache).
func NewFaqFile(path string, cache port.Cache[[]domain.FaqEntry], metrics *observability.Metrics, logger *zap.Logger) *FaqFile {
	return &FaqFile{path: path, cache: cache, metrics: metrics, logger: logger}
}

// Load devolve as entradas na ordem do arquivo.
// Arquivo ausente → lista vazia sem erro. JSON inválido → erro.
func (f *FaqFile) Load(ctx context.Context) ([]domain.FaqEntry, error) {
	_, span := tracer.Start(ctx, "FaqFile.Load")
	defer span.End()
	span.SetAttributes(attribute.String("faq.path", f.path))

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("faq file not found", zap.String("path", f.path))
		return []domain.FaqEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat faq file: %w", err)
	}

	key := fmt.Sprintf("%s:%d:%d", f.path, info.ModTime().UnixNano(), info.Size())
	if f.cache != nil {
		if entries, ok := f.cache.Get(key); ok {
			f.metrics.IncrCacheHit("faq")
			return entries, nil
		}
		f.metrics.IncrCacheMiss("faq")
	}

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.FaqEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}

	var doc faqDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse faq file %s: %w", f.path, err)
	}
	if doc.Faqs == nil {
		doc.Faqs = []domain.FaqEntry{}
	}

	if f.cache != nil {
		f.cache.Set(key, doc.Faqs)
	}
	span.SetAttributes(attribute.Int("faq.count", len(doc.Faqs)))
	return doc.Faqs, nil
}
