package labeling

import (
	"context"
	"strings"
	"unicode/utf8"
)

// wordClassifier labels a text with its first word, or fails with the queued errors first.
type wordClassifier struct {
	errs    []error
	lengths []int
}

func (w *wordClassifier) ClassifyRaw(ctx context.Context, text string) (RawLabel, error) {
	w.lengths = append(w.lengths, utf8.RuneCountInString(text))
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		return RawLabel{}, err
	}
	label, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	return RawLabel{Label: "  " + label + " ", Explanation: " first word is " + label + " "}, nil
}

func (w *wordClassifier) calls() int {
	return len(w.lengths)
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vectors[t])
	}
	return out, nil
}

func docText(label string) string {
	return strings.Repeat(label+" ", 40)
}

func cluster(id int64, labels ...string) []Document {
	out := make([]Document, 0, len(labels))
	for i, l := range labels {
		out = append(out, Document{
			ID:            string(rune('a' + i)),
			Filename:      l + "-" + string(rune('a'+i)) + ".pdf",
			FirstPageText: docText(l),
			ClusterID:     id,
		})
	}
	return out
}
