package labeling

import (
	"clusterlabel/internal/config"
	"clusterlabel/internal/providers"

	"go.uber.org/zap"
)

// NewEngineFromConfig wires the engine to the failover providers of pm.
func NewEngineFromConfig(cfg config.Config, pm *providers.Manager, logger *zap.Logger) *Engine {
	return NewEngine(
		NewLLMClassifier(pm.LLM()),
		NewProviderEmbedder(pm.Embedder(), cfg.EmbedDim),
		SettingsFromConfig(cfg),
		logger,
	)
}
