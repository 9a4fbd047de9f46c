package providers

import (
	"context"
	"fmt"
	"time"

	"clusterlabel/internal/config"

	"go.uber.org/zap"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager owns the configured providers. LLM and Embedder hand out a single
// provider that fails over across the configured ones, real providers first.
type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
	logger         *zap.Logger
}

func NewManager(cfg config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := uint64(max(cfg.ProviderMaxRetries, 0))
	base := time.Duration(cfg.ProviderRetryBaseMillis) * time.Millisecond

	m := &Manager{logger: logger}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: WithRetry(llm, retries, base)})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: WithEmbedRetry(embed, retries, base)})
	}
	return m, nil
}

func (m *Manager) LLM() LLMProvider {
	return &failoverLLM{m: m}
}

func (m *Manager) Embedder() EmbeddingProvider {
	return &failoverEmbedder{m: m}
}

func (m *Manager) LLMRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.llmProviders))
	for _, p := range m.llmProviders {
		out = append(out, p.Ref)
	}
	return out
}

func (m *Manager) EmbedRefs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.embedProviders))
	for _, p := range m.embedProviders {
		out = append(out, p.Ref)
	}
	return out
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

// failover moves to the next provider only when the current one is out of
// quota or keeps failing transiently. Any other error belongs to the request.
func failover(err error) bool {
	switch ClassifyError(err) {
	case ErrorQuota, ErrorRate, ErrorTransient:
		return true
	default:
		return false
	}
}

type failoverLLM struct {
	m *Manager
}

func (f *failoverLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	ps := f.m.llmProviders
	var (
		info    ProviderInfo
		lastErr = fmt.Errorf("no llm providers configured")
	)
	for _, i := range preferredOrder(len(ps), func(i int) string { return ps[i].Ref.Name }) {
		var resp GenerateResponse
		var err error
		resp, info, err = ps[i].Provider.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastErr = err
		if !failover(err) {
			break
		}
		f.m.logger.Warn("llm provider failed, trying next", zap.String("provider", ps[i].Ref.Raw), zap.Error(err))
	}
	return GenerateResponse{}, info, lastErr
}

type failoverEmbedder struct {
	m *Manager
}

func (f *failoverEmbedder) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	ps := f.m.embedProviders
	var (
		info    ProviderInfo
		lastErr = fmt.Errorf("no embedding providers configured")
	)
	for _, i := range preferredOrder(len(ps), func(i int) string { return ps[i].Ref.Name }) {
		var out [][]float32
		var err error
		out, info, err = ps[i].Provider.Embed(ctx, req)
		if err == nil {
			return out, info, nil
		}
		lastErr = err
		if !failover(err) {
			break
		}
		f.m.logger.Warn("embedding provider failed, trying next", zap.String("provider", ps[i].Ref.Raw), zap.Error(err))
	}
	return nil, info, lastErr
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	case "gemini":
		return NewGeminiProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
