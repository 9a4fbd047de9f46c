package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"clusterlabel/internal/labeling"
)

// Column names of the asset table, shared by the CSV and Postgres stores.
const (
	ColAssetID      = "asset_id"
	ColFilename     = "filename"
	ColFirstPage    = "firstpagetxt"
	ColClusterID    = "cluster_id"
	ColClusterLabel = "cluster_label"
	ColLabelStatus  = "label_status"
	ColLabelsUsed   = "labels_used"
)

// LabelColumns are the columns a decision writes.
var LabelColumns = []string{ColClusterLabel, ColLabelStatus, ColLabelsUsed}

// Row is one document of the asset table. Nil label fields mean the cluster
// has not been labeled.
type Row struct {
	AssetID       string  `json:"asset_id"`
	Filename      string  `json:"filename"`
	FirstPageText string  `json:"firstpagetxt"`
	ClusterID     int64   `json:"cluster_id"`
	ClusterLabel  *string `json:"cluster_label"`
	LabelStatus   *string `json:"label_status"`
	LabelsUsed    *string `json:"labels_used"`
}

func (r Row) Labeled() bool {
	return r.ClusterLabel != nil
}

func (r Row) Document() labeling.Document {
	return labeling.Document{
		ID:            r.AssetID,
		Filename:      r.Filename,
		FirstPageText: r.FirstPageText,
		ClusterID:     r.ClusterID,
	}
}

// Apply stamps a decision onto the row.
func (r *Row) Apply(label, status, labelsUsed string) {
	r.ClusterLabel = &label
	r.LabelStatus = &status
	r.LabelsUsed = &labelsUsed
}

func (r *Row) ClearLabel() {
	r.ClusterLabel = nil
	r.LabelStatus = nil
	r.LabelsUsed = nil
}

// Documents converts rows for the engine.
func Documents(rows []Row) []labeling.Document {
	out := make([]labeling.Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Document())
	}
	return out
}

// Outcome is the per-cluster result of a labeling run. It marshals to one of
// three shapes: an error, a skip of an already labeled cluster, or a
// processed cluster carrying the full decision.
type Outcome struct {
	Error           bool                   `json:"error"`
	Skip            bool                   `json:"skip"`
	Message         string                 `json:"message,omitempty"`
	ClusterID       int64                  `json:"cluster_id"`
	ClusterLabel    string                 `json:"cluster_label,omitempty"`
	Status          labeling.Status        `json:"status,omitempty"`
	SimilarityScore float64                `json:"similarity_score"`
	LabelsUsed      []labeling.LabelRecord `json:"labels_used"`
}

type errorOutcome struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	ClusterID int64  `json:"cluster_id"`
}

type skipOutcome struct {
	Error        bool   `json:"error"`
	Skip         bool   `json:"skip"`
	Message      string `json:"message"`
	ClusterID    int64  `json:"cluster_id"`
	ClusterLabel string `json:"cluster_label"`
}

type processedOutcome struct {
	Error           bool                   `json:"error"`
	Skip            bool                   `json:"skip"`
	ClusterID       int64                  `json:"cluster_id"`
	ClusterLabel    string                 `json:"cluster_label"`
	Status          labeling.Status        `json:"status"`
	SimilarityScore float64                `json:"similarity_score"`
	LabelsUsed      []labeling.LabelRecord `json:"labels_used"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	switch {
	case o.Error:
		return marshalNoEscape(errorOutcome{Error: true, Message: o.Message, ClusterID: o.ClusterID})
	case o.Skip:
		return marshalNoEscape(skipOutcome{Skip: true, Message: o.Message, ClusterID: o.ClusterID, ClusterLabel: o.ClusterLabel})
	}
	labels := o.LabelsUsed
	if labels == nil {
		labels = []labeling.LabelRecord{}
	}
	return marshalNoEscape(processedOutcome{
		ClusterID:       o.ClusterID,
		ClusterLabel:    o.ClusterLabel,
		Status:          o.Status,
		SimilarityScore: o.SimilarityScore,
		LabelsUsed:      labels,
	})
}

// Overview is the coverage report of the asset table.
type Overview struct {
	TotalDocuments     int            `json:"total_documents"`
	TotalClusters      int            `json:"total_clusters"`
	LabeledClusters    int            `json:"labeled_clusters"`
	UnlabeledClusters  int            `json:"unlabeled_clusters"`
	CoveragePercent    float64        `json:"coverage_percent"`
	StatusDistribution map[string]int `json:"status_distribution"`
	UnlabeledIDs       []int64        `json:"unlabeled_cluster_ids"`
}

// LabelGroup lists the clusters that received one label.
type LabelGroup struct {
	Label        string  `json:"label"`
	ClusterCount int     `json:"cluster_count"`
	ClusterIDs   []int64 `json:"cluster_ids"`
}

// Summary extends Overview with per-label grouping.
type Summary struct {
	Overview
	DominantLabel      string       `json:"dominant_label,omitempty"`
	DominantLabelRatio float64      `json:"dominant_label_ratio"`
	LabelGroups        []LabelGroup `json:"label_groups"`
}

// EncodeLabelsUsed renders the per-document records the way they are stored
// in labels_used: a JSON array with non-ASCII text kept verbatim.
func EncodeLabelsUsed(records []labeling.LabelRecord) (string, error) {
	if records == nil {
		records = []labeling.LabelRecord{}
	}
	raw, err := marshalNoEscape(records)
	if err != nil {
		return "", fmt.Errorf("encode labels_used: %w", err)
	}
	return string(raw), nil
}

// marshalNoEscape is json.Marshal without HTML escaping, so labels such as
// "Brief & Nota" keep their literal characters.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeLabelsUsed is the inverse of EncodeLabelsUsed. Empty input yields nil.
func DecodeLabelsUsed(raw string) ([]labeling.LabelRecord, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []labeling.LabelRecord
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode labels_used: %w", err)
	}
	return out, nil
}
