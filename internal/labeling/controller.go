package labeling

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"clusterlabel/internal/providers"
	"clusterlabel/internal/util"

	"go.uber.org/zap"
)

const noTextExplanation = "no text available for analysis (first page text is empty or too short)"

// Controller classifies one document, halving oversized input on token-limit
// failures until MinInputChars would be crossed.
type Controller struct {
	classifier TextClassifier
	settings   Settings
	logger     *zap.Logger
}

func NewController(classifier TextClassifier, settings Settings, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		classifier: classifier,
		settings:   settings.withDefaults(),
		logger:     logger,
	}
}

// Classify never returns an error: every failure is folded into a result with
// DocStatusError and the upstream message as explanation.
func (c *Controller) Classify(ctx context.Context, text, filename string) ClassificationResult {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < c.settings.MinTextLength {
		return ClassificationResult{
			Filename:    filename,
			Label:       LabelUnknown,
			Explanation: noTextExplanation,
			Status:      DocStatusError,
		}
	}

	snippet := []rune(text)
	if len(snippet) > c.settings.MaxInputChars {
		snippet = snippet[:c.settings.MaxInputChars]
	}

	for {
		c.logger.Debug("classifying document", zap.String("filename", filename), zap.Int("chars", len(snippet)))
		raw, err := c.classifier.ClassifyRaw(ctx, string(snippet))
		if err == nil {
			return ClassificationResult{
				Filename:    filename,
				Label:       util.SanitizeText(raw.Label),
				Explanation: util.SanitizeText(raw.Explanation),
				Status:      DocStatusOK,
			}
		}
		if !shouldShrink(err) {
			return failedResult(filename, err)
		}
		next := len(snippet) / 2
		if next < c.settings.MinInputChars {
			c.logger.Warn("token limit persists at input floor",
				zap.String("filename", filename),
				zap.Int("chars", len(snippet)),
				zap.Int("floor", c.settings.MinInputChars),
				zap.Error(err))
			return failedResult(filename, err)
		}
		c.logger.Warn("token limit exceeded, retrying with smaller input",
			zap.String("filename", filename),
			zap.Int("chars", next))
		snippet = snippet[:next]
	}
}

// "deadline exceeded" would otherwise match the token-limit substrings.
func shouldShrink(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return providers.IsTokenLimit(err)
}

func failedResult(filename string, err error) ClassificationResult {
	return ClassificationResult{
		Filename:    filename,
		Label:       LabelError,
		Explanation: err.Error(),
		Status:      DocStatusError,
	}
}
