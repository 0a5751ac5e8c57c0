package providers

import (
	"fmt"
	"strings"

	"veriflow/internal/config"
)

type NamedCompletionProvider struct {
	Ref      ProviderRef
	Provider CompletionProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager holds the configured completion and embedding providers in the
// order they were listed. The first completion provider is the primary
// adjudicator; the second, when present, cross-checks its verdicts.
type Manager struct {
	completionProviders []NamedCompletionProvider
	embedProviders      []NamedEmbedProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	llmRefs := ParseProviderList(cfg.LLMProviders)
	embedRefs := ParseProviderList(cfg.EmbedProviders)

	m := &Manager{}
	for _, ref := range llmRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		c, ok := p.(CompletionProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support completions", ref.Raw)
		}
		m.completionProviders = append(m.completionProviders, NamedCompletionProvider{Ref: ref, Provider: c})
	}
	for _, ref := range embedRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		e, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: e})
	}
	if len(m.completionProviders) == 0 {
		m.completionProviders = []NamedCompletionProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	return m, nil
}

// Primary returns the first configured completion provider.
func (m *Manager) Primary() (CompletionProvider, ProviderRef) {
	return m.completionProviders[0].Provider, m.completionProviders[0].Ref
}

// Secondary returns the cross-check provider, or ok=false when only one
// completion provider is configured.
func (m *Manager) Secondary() (CompletionProvider, ProviderRef, bool) {
	if len(m.completionProviders) < 2 {
		return nil, ProviderRef{}, false
	}
	return m.completionProviders[1].Provider, m.completionProviders[1].Ref, true
}

func (m *Manager) FirstEmbedProvider() (EmbeddingProvider, ProviderRef) {
	return m.embedProviders[0].Provider, m.embedProviders[0].Ref
}

func (m *Manager) CompletionCount() int { return len(m.completionProviders) }

func (m *Manager) EmbedCount() int { return len(m.embedProviders) }

func (m *Manager) FindCompletionProviderByName(name string) (CompletionProvider, ProviderRef, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return nil, ProviderRef{}, false
	}
	for i := range m.completionProviders {
		if strings.ToLower(m.completionProviders[i].Ref.Name) == target {
			return m.completionProviders[i].Provider, m.completionProviders[i].Ref, true
		}
	}
	return nil, ProviderRef{}, false
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "gemini":
		return NewGeminiProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
