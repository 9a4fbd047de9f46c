package batch

import "clusterlabel/internal/models"

// Snapshot is a run-private copy of the asset table grouped by cluster id.
// Clusters keep the order in which they were first seen.
type Snapshot struct {
	order    []int64
	clusters map[int64][]models.Row
}

// NewSnapshot copies rows; later changes to the caller's slice are not seen.
func NewSnapshot(rows []models.Row) *Snapshot {
	s := &Snapshot{clusters: make(map[int64][]models.Row)}
	for _, r := range rows {
		if _, ok := s.clusters[r.ClusterID]; !ok {
			s.order = append(s.order, r.ClusterID)
		}
		s.clusters[r.ClusterID] = append(s.clusters[r.ClusterID], r)
	}
	return s
}

func (s *Snapshot) IDs() []int64 {
	return append([]int64(nil), s.order...)
}

func (s *Snapshot) Cluster(id int64) ([]models.Row, bool) {
	rows, ok := s.clusters[id]
	return rows, ok
}

// Label returns the first non-null cluster_label of the cluster.
func (s *Snapshot) Label(id int64) (string, bool) {
	for _, r := range s.clusters[id] {
		if r.ClusterLabel != nil {
			return *r.ClusterLabel, true
		}
	}
	return "", false
}

// Rows flattens the snapshot back into cluster order.
func (s *Snapshot) Rows() []models.Row {
	out := make([]models.Row, 0)
	for _, id := range s.order {
		out = append(out, s.clusters[id]...)
	}
	return out
}

func (s *Snapshot) apply(id int64, label, status, labelsUsed string) {
	rows := s.clusters[id]
	for i := range rows {
		rows[i].Apply(label, status, labelsUsed)
	}
}

// Targets lists unlabeled cluster ids in first-seen order, at most limit of
// them. limit <= 0 means all.
func Targets(s *Snapshot, limit int) []int64 {
	out := make([]int64, 0)
	for _, id := range s.order {
		if _, labeled := s.Label(id); labeled {
			continue
		}
		out = append(out, id)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
