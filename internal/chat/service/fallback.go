package service

import (
	"context"
	"errors"

	"github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"

	"go.uber.org/zap"
)

// ============================================================
// withFallback — "remoto primeiro, determinístico depois"
// ============================================================
//
// Um único combinador serve a classificação de intenção e as duas
// composições de resposta. A chamada remota tem UMA tentativa; qualquer
// erro (sem credencial, rede, status não-2xx, corpo vazio ou inválido)
// cai no fallback. O fallback nunca falha.

func withFallback[T any](
	ctx context.Context,
	stage string,
	remote func(ctx context.Context) (T, error),
	fallback func() T,
	metrics *observability.Metrics,
	logger *zap.Logger,
) T {
	result, err := remote(ctx)
	if err == nil {
		return result
	}

	metrics.IncrFallback(stage)

	var disabled *domain.ErrCompletionDisabled
	if errors.As(err, &disabled) {
		logger.Debug("completion disabled, using fallback", zap.String("stage", stage))
	} else {
		logger.Warn("remote completion failed, using fallback",
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
	return fallback()
}
