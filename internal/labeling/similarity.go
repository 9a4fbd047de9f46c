package labeling

import (
	"context"
	"fmt"
	"math"

	"clusterlabel/internal/providers"
)

const embedOperation = "embed_labels"

// ProviderEmbedder is the Embedder backed by a hosted embedding provider.
type ProviderEmbedder struct {
	provider  providers.EmbeddingProvider
	dimension int
}

func NewProviderEmbedder(p providers.EmbeddingProvider, dimension int) *ProviderEmbedder {
	return &ProviderEmbedder{provider: p, dimension: dimension}
}

func (e *ProviderEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, info, err := e.provider.Embed(ctx, providers.EmbedRequest{
		Operation: embedOperation,
		Inputs:    texts,
		Dimension: e.dimension,
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%s returned %d vectors for %d inputs", info.Name, len(vectors), len(texts))
	}
	return vectors, nil
}

// CosineMatrix returns the pairwise cosine similarity of vectors. A zero vector
// has similarity 0 with everything.
func CosineMatrix(vectors [][]float32) ([][]float64, error) {
	n := len(vectors)
	norms := make([]float64, n)
	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), len(vectors[0]))
		}
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		norms[i] = math.Sqrt(sum)
	}

	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var s float64
			if norms[i] != 0 && norms[j] != 0 {
				var dot float64
				for k := range vectors[i] {
					dot += float64(vectors[i][k]) * float64(vectors[j][k])
				}
				s = dot / (norms[i] * norms[j])
			}
			m[i][j] = s
			m[j][i] = s
		}
	}
	return m, nil
}

// MeanPairwise averages the strictly upper triangle of a square matrix.
func MeanPairwise(m [][]float64) float64 {
	var sum float64
	count := 0
	for i := range m {
		for j := i + 1; j < len(m[i]); j++ {
			sum += m[i][j]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
