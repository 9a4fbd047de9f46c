package workflows

import "clusterlabel/internal/models"

type ClusterLabelInput struct {
	RunID  string `json:"run_id"`
	Source string `json:"source,omitempty"`
	// Limit caps the number of unlabeled clusters; <= 0 labels all of them.
	Limit int `json:"limit"`
}

type ClusterLabelProgress struct {
	RunID      string           `json:"run_id"`
	Total      int              `json:"total"`
	Done       int              `json:"done"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	PerCluster map[int64]string `json:"per_cluster"`
}

type ClusterLabelResult struct {
	RunID      string           `json:"run_id"`
	ReportPath string           `json:"report_path,omitempty"`
	Outcomes   []models.Outcome `json:"outcomes"`
}
