package labeling

import "context"

// Document statuses produced by the Controller.
const (
	DocStatusOK    = "OK"
	DocStatusError = "Error"
)

// Cluster decision statuses produced by the Engine.
type Status string

const (
	StatusAuto        Status = "Auto"
	StatusAutoSimilar Status = "Auto-Similar"
	StatusManual      Status = "Manual"
	StatusEmpty       Status = "Empty"
)

// Sentinel labels. LabelError is only ever produced by a failed model call and
// must not be confused with a label the model returned.
const (
	LabelUnknown      = "Unknown"
	LabelError        = "error"
	LabelManualReview = "ManualReview"
)

// Document is one row of a cluster as seen by the engine.
type Document struct {
	ID            string
	Filename      string
	FirstPageText string
	ClusterID     int64
}

// RawLabel is the answer of a single classification call.
type RawLabel struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// ClassificationResult is the per-document outcome of the Controller.
type ClassificationResult struct {
	Filename    string `json:"filename"`
	Label       string `json:"document_label"`
	Explanation string `json:"explanation"`
	Status      string `json:"status"`
}

// LabelRecord is what a decision keeps about each sampled document.
type LabelRecord struct {
	Filename    string `json:"filename"`
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// Decision is the reconciled label of one cluster.
type Decision struct {
	ClusterLabel    string        `json:"cluster_label"`
	Labels          []LabelRecord `json:"labels"`
	Status          Status        `json:"status"`
	SimilarityScore float64       `json:"similarity_score"`
}

// TextClassifier asks a hosted model for the label of a piece of text.
type TextClassifier interface {
	ClassifyRaw(ctx context.Context, text string) (RawLabel, error)
}

// Embedder turns texts into vectors, same length and order as the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
