package providers

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiProvider supports generation and embeddings via Google's Gemini API.
type GeminiProvider struct {
	keyName    string
	apiKey     string
	model      string
	embedModel string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewGeminiProvider(keyName string) *GeminiProvider {
	return &GeminiProvider{
		keyName:    keyName,
		apiKey:     resolveKey("GEMINI", keyName, "GEMINI_API_KEY"),
		model:      envOr("CLUSTERLABEL_GEMINI_MODEL", "gemini-2.0-flash"),
		embedModel: envOr("CLUSTERLABEL_GEMINI_EMBED_MODEL", "gemini-embedding-001"),
	}
}

func (g *GeminiProvider) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		if g.apiKey == "" {
			g.clientErr = fmt.Errorf("gemini key missing for alias %q", g.keyName)
			return
		}
		g.client, g.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.client, g.clientErr
}

func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.model, Key: g.keyName}
	client, err := g.genaiClient(ctx)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	var temperature float32
	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(req), genai.RoleUser),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("gemini generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return GenerateResponse{}, info, fmt.Errorf("gemini returned empty candidates")
	}
	return GenerateResponse{Text: text}, info, nil
}

func (g *GeminiProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.embedModel, Key: g.keyName}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	client, err := g.genaiClient(ctx)
	if err != nil {
		return nil, info, err
	}
	contents := make([]*genai.Content, len(req.Inputs))
	for i, text := range req.Inputs {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, info, fmt.Errorf("gemini embed failed: %w", err)
	}
	out := make([][]float32, 0, len(result.Embeddings))
	for _, emb := range result.Embeddings {
		out = append(out, matchDimension(emb.Values, req.Dimension))
	}
	return out, info, nil
}
