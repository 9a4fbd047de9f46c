package storage

import (
	"context"
	"errors"

	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"
)

var (
	ErrClusterNotFound = errors.New("cluster not found")
	ErrUnknownSource   = errors.New("unknown data source")
)

// Store is the asset table the labeling run reads from and writes back to.
// Only rows with a cluster id are visible.
type Store interface {
	Rows(ctx context.Context) ([]models.Row, error)
	ClusterRows(ctx context.Context, clusterID int64) ([]models.Row, error)
	// UnlabeledRows returns every row of the first limit unlabeled clusters;
	// limit <= 0 means all of them.
	UnlabeledRows(ctx context.Context, limit int) ([]models.Row, error)
	SaveDecision(ctx context.Context, clusterID int64, d labeling.Decision) error
	// ResetLabels clears the label columns of the first limit labeled clusters
	// (all when limit <= 0) and returns how many clusters were reset.
	ResetLabels(ctx context.Context, limit int) (int, error)
	Close()
}

// firstClusters keeps the rows of the first limit clusters accepted by keep,
// in first-seen order.
func firstClusters(rows []models.Row, limit int, keep func(labeled bool) bool) []models.Row {
	labeled := make(map[int64]bool)
	order := make([]int64, 0)
	for _, r := range rows {
		if _, seen := labeled[r.ClusterID]; !seen {
			order = append(order, r.ClusterID)
			labeled[r.ClusterID] = false
		}
		if r.Labeled() {
			labeled[r.ClusterID] = true
		}
	}
	chosen := make(map[int64]bool)
	for _, id := range order {
		if limit > 0 && len(chosen) == limit {
			break
		}
		if keep(labeled[id]) {
			chosen[id] = true
		}
	}
	out := make([]models.Row, 0)
	for _, r := range rows {
		if chosen[r.ClusterID] {
			out = append(out, r)
		}
	}
	return out
}
