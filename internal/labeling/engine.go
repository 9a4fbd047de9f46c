package labeling

import (
	"context"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// Options override the engine settings for one Reconcile call. Zero values use
// the configured defaults.
type Options struct {
	SampleSize          int
	SimilarityThreshold float64
}

// Engine reconciles per-document labels into one cluster label.
type Engine struct {
	controller *Controller
	embedder   Embedder
	settings   Settings
	logger     *zap.Logger
}

func NewEngine(classifier TextClassifier, embedder Embedder, settings Settings, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings = settings.withDefaults()
	return &Engine{
		controller: NewController(classifier, settings, logger),
		embedder:   embedder,
		settings:   settings,
		logger:     logger,
	}
}

func (e *Engine) Settings() Settings {
	return e.settings
}

// Reconcile samples docs, classifies every sample and decides the cluster label:
// majority vote first, label-embedding similarity when the vote is split.
func (e *Engine) Reconcile(ctx context.Context, docs []Document, opts Options) Decision {
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = e.settings.SampleSize
	}
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = e.settings.SimilarityThreshold
	}

	sample := Sample(docs, sampleSize, e.settings.SampleSeed)
	records := make([]LabelRecord, 0, len(sample))
	labels := make([]string, 0, len(sample))
	for _, d := range sample {
		e.logger.Info("processing document",
			zap.Int64("cluster_id", d.ClusterID),
			zap.String("filename", d.Filename))
		res := e.controller.Classify(ctx, d.FirstPageText, d.Filename)
		records = append(records, LabelRecord{Filename: d.Filename, Label: res.Label, Explanation: res.Explanation})
		labels = append(labels, res.Label)
	}
	if len(labels) == 0 {
		return Decision{
			ClusterLabel:    LabelUnknown,
			Labels:          []LabelRecord{},
			Status:          StatusEmpty,
			SimilarityScore: 0,
		}
	}

	top, count := MajorityLabel(labels)
	ratio := float64(count) / float64(len(labels))
	if ratio >= e.settings.MajorityThreshold {
		return Decision{ClusterLabel: top, Labels: records, Status: StatusAuto, SimilarityScore: 1}
	}

	avg := e.averageSimilarity(ctx, labels)
	if avg >= threshold {
		return Decision{ClusterLabel: top, Labels: records, Status: StatusAutoSimilar, SimilarityScore: round3(avg)}
	}
	return Decision{ClusterLabel: LabelManualReview, Labels: records, Status: StatusManual, SimilarityScore: round3(avg)}
}

// averageSimilarity degrades to 0 on any embedding failure.
func (e *Engine) averageSimilarity(ctx context.Context, labels []string) float64 {
	if e.embedder == nil {
		e.logger.Warn("embedding similarity skipped: no embedder configured")
		return 0
	}
	vectors, err := e.embedder.Embed(ctx, labels)
	if err != nil {
		e.logger.Warn("embedding similarity failed", zap.Error(err))
		return 0
	}
	m, err := CosineMatrix(vectors)
	if err != nil {
		e.logger.Warn("embedding similarity failed", zap.Error(err))
		return 0
	}
	return MeanPairwise(m)
}

// Sample draws min(n, len(docs)) documents with a fixed seed, so the same
// cluster yields the same sample on every run.
func Sample(docs []Document, n int, seed int64) []Document {
	if n > len(docs) {
		n = len(docs)
	}
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(docs))
	out := make([]Document, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, docs[idx])
	}
	return out
}

// MajorityLabel returns the most frequent label and its count. Ties go to the
// alphabetically first label.
func MajorityLabel(labels []string) (string, int) {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}
	distinct := make([]string, 0, len(counts))
	for l := range counts {
		distinct = append(distinct, l)
	}
	sort.Strings(distinct)

	top, best := "", 0
	for _, l := range distinct {
		if counts[l] > best {
			top, best = l, counts[l]
		}
	}
	return top, best
}
