// Package port — chat_port.go define as interfaces (ports) que o módulo de
// chat usa para falar com o mundo externo: o LLM, o documento de FAQ e o
// store de produtos.
//
// Seguindo a arquitetura hexagonal, o ChatService depende dessas interfaces
// e NÃO dos adapters concretos. Isso facilita testes (doubles determinísticos)
// e troca de implementação (OpenAI, outro provedor compatível, SQLite, Postgres).
package port

import (
	"context"

	chatdomain "github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/domain"
)

// Completer é a capability de completion remota.
//
//   - ClassifyIntent pede um objeto JSON (modo json_object, temperatura baixa)
//   - ComposeReply pede texto livre (temperatura mais alta)
//
// Cada chamada é uma única tentativa com timeout; o retry NÃO é responsabilidade
// do Completer. Sem credencial → *chatdomain.ErrCompletionDisabled.
type Completer interface {
	ClassifyIntent(ctx context.Context, req *chatdomain.CompletionRequest) (string, error)
	ComposeReply(ctx context.Context, req *chatdomain.CompletionRequest) (string, error)
}

// FaqSource lê o documento de FAQ inteiro, na ordem do arquivo.
// Arquivo ausente → lista vazia sem erro; conteúdo inválido → erro.
type FaqSource interface {
	Load(ctx context.Context) ([]chatdomain.FaqEntry, error)
}

// ProductSearcher executa a busca de produtos já enriquecidos (categoria + imagens).
// O store concreto (sqlstore.ProductStore) implementa essa interface.
type ProductSearcher interface {
	Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}
