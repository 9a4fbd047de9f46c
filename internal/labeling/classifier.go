package labeling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clusterlabel/internal/providers"
)

const classifyOperation = "classify_document"

// LLMClassifier is the TextClassifier backed by a hosted LLM provider.
type LLMClassifier struct {
	provider providers.LLMProvider
}

func NewLLMClassifier(p providers.LLMProvider) *LLMClassifier {
	return &LLMClassifier{provider: p}
}

func (c *LLMClassifier) ClassifyRaw(ctx context.Context, text string) (RawLabel, error) {
	resp, info, err := c.provider.Generate(ctx, providers.GenerateRequest{
		Operation: classifyOperation,
		Prompt:    BuildClassificationPrompt(text),
	})
	if err != nil {
		return RawLabel{}, err
	}
	out, err := ParseRawLabel(resp.Text)
	if err != nil {
		return RawLabel{}, fmt.Errorf("%s returned an unusable answer: %w", info.Name, err)
	}
	return out, nil
}

// ParseRawLabel decodes the model answer. A missing label becomes Unknown.
func ParseRawLabel(raw string) (RawLabel, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return RawLabel{}, fmt.Errorf("empty answer")
	}
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}
	var out RawLabel
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return RawLabel{}, fmt.Errorf("decode classification answer: %w", err)
	}
	out.Label = strings.TrimSpace(out.Label)
	out.Explanation = strings.TrimSpace(out.Explanation)
	if out.Label == "" {
		out.Label = LabelUnknown
	}
	return out, nil
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
