package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Intent — variante com tag (faq | product_search)
// ============================================================

// IntentKind é a tag da intenção.
type IntentKind string

const (
	IntentFaq           IntentKind = "faq"
	IntentProductSearch IntentKind = "product_search"
)

// Intent é a intenção classificada de uma mensagem.
//
// Só os campos da tag ativa têm significado:
//   - faq: FaqKey (opcional)
//   - product_search: Keywords, CategoryID, PriceMin, PriceMax
type Intent struct {
	Kind IntentKind

	FaqKey *string

	Keywords   []string
	CategoryID *int64
	PriceMin   *float64
	PriceMax   *float64
}

// NewFaqIntent monta uma intenção faq apontando para key.
func NewFaqIntent(key string) Intent {
	return Intent{Kind: IntentFaq, FaqKey: &key}
}

// NewProductSearchIntent monta uma intenção product_search sem filtros.
func NewProductSearchIntent(keywords []string) Intent {
	if keywords == nil {
		keywords = []string{}
	}
	return Intent{Kind: IntentProductSearch, Keywords: keywords}
}

// IsValid diz se a tag é conhecida. É o re-check defensivo do orquestrador.
func (i Intent) IsValid() bool {
	return i.Kind == IntentFaq || i.Kind == IntentProductSearch
}

// HasFaqKey é true quando há uma key não vazia para busca direta.
func (i Intent) HasFaqKey() bool {
	return i.FaqKey != nil && *i.FaqKey != ""
}

// KeywordsFromMessage quebra a mensagem em tokens separados por espaço,
// mantendo só os que têm mais de 1 caractere (contagem em runes) e a ordem original.
func KeywordsFromMessage(message string) []string {
	tokens := make([]string, 0)
	for _, word := range strings.Fields(message) {
		if utf8.RuneCountInString(word) > 1 {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// ============================================================
// Wire format — o JSON que o LLM devolve (e que o fallback produz)
// ============================================================

type faqWire struct {
	Intent IntentKind `json:"intent"`
	FaqKey *string    `json:"faq_key"`
}

type productSearchWire struct {
	Intent     IntentKind `json:"intent"`
	Keywords   []string   `json:"keywords"`
	CategoryID *int64     `json:"category_id"`
	PriceMin   *float64   `json:"price_min"`
	PriceMax   *float64   `json:"price_max"`
}

// MarshalJSON emite só os campos da tag ativa, no mesmo formato pedido ao LLM.
func (i Intent) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case IntentFaq:
		return json.Marshal(faqWire{Intent: i.Kind, FaqKey: i.FaqKey})
	case IntentProductSearch:
		kw := i.Keywords
		if kw == nil {
			kw = []string{}
		}
		return json.Marshal(productSearchWire{
			Intent:     i.Kind,
			Keywords:   kw,
			CategoryID: i.CategoryID,
			PriceMin:   i.PriceMin,
			PriceMax:   i.PriceMax,
		})
	default:
		return nil, fmt.Errorf("marshal intent: unknown kind %q", i.Kind)
	}
}

// ErrInvalidIntent indica um objeto de intenção estruturalmente inválido.
var ErrInvalidIntent = errors.New("invalid intent object")

// ParseIntent valida e converte o JSON de intenção.
//
// Regras estruturais:
//   - faq exige faq_key presente e string (null é inválido)
//   - product_search exige keywords presente e array (pode ser vazio)
//   - qualquer outra tag é inválida
//
// Filtros opcionais aceitam número ou string numérica; o resto vira "não informado".
// category_id 0 também conta como não informado.
func ParseIntent(raw []byte) (Intent, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if obj == nil {
		return Intent{}, fmt.Errorf("%w: not an object", ErrInvalidIntent)
	}

	var kind string
	if err := unmarshalPresent(obj, "intent", &kind); err != nil {
		return Intent{}, err
	}

	switch IntentKind(kind) {
	case IntentFaq:
		var key string
		if err := unmarshalPresent(obj, "faq_key", &key); err != nil {
			return Intent{}, err
		}
		return NewFaqIntent(key), nil

	case IntentProductSearch:
		var items []json.RawMessage
		if err := unmarshalPresent(obj, "keywords", &items); err != nil {
			return Intent{}, err
		}
		intent := NewProductSearchIntent(keywordsFromRaw(items))
		intent.CategoryID = optionalCategory(obj["category_id"])
		intent.PriceMin = optionalNumber(obj["price_min"])
		intent.PriceMax = optionalNumber(obj["price_max"])
		return intent, nil

	default:
		return Intent{}, fmt.Errorf("%w: unknown intent %q", ErrInvalidIntent, kind)
	}
}

// unmarshalPresent exige que field exista, não seja null e tenha o tipo de dst.
func unmarshalPresent(obj map[string]json.RawMessage, field string, dst any) error {
	raw, ok := obj[field]
	if !ok || isNull(raw) {
		return fmt.Errorf("%w: missing %s", ErrInvalidIntent, field)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s has wrong type", ErrInvalidIntent, field)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// keywordsFromRaw mantém strings, converte números em texto e descarta o resto.
func keywordsFromRaw(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n.String())
		}
	}
	return out
}

func optionalNumber(raw json.RawMessage) *float64 {
	if isNull(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return &f
		}
	}
	return nil
}

func optionalCategory(raw json.RawMessage) *int64 {
	f := optionalNumber(raw)
	if f == nil || *f == 0 || *f != math.Trunc(*f) {
		return nil
	}
	id := int64(*f)
	return &id
}
