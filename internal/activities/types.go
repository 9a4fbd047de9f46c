package activities

import "clusterlabel/internal/models"

type ListUnlabeledInput struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit"`
}

type ListUnlabeledOutput struct {
	ClusterIDs []int64 `json:"cluster_ids"`
}

type LabelClusterInput struct {
	Source    string `json:"source,omitempty"`
	ClusterID int64  `json:"cluster_id"`
}

type WriteRunReportInput struct {
	RunID    string           `json:"run_id"`
	Outcomes []models.Outcome `json:"outcomes"`
}

type WriteRunReportOutput struct {
	Path string `json:"path"`
}
