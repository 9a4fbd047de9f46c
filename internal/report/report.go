package report

import (
	"math"
	"sort"

	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"
)

const (
	SortLabelCount = "label_count"
	FilterManual   = "manual"
	unlabeledKey   = "Unlabeled"
)

// Overview counts documents and clusters and how many clusters carry a label.
// Document statuses are counted per row; rows without a status count as
// Unlabeled.
func Overview(rows []models.Row) models.Overview {
	order, labeled := clusterState(rows)
	ov := models.Overview{
		TotalDocuments:     len(rows),
		TotalClusters:      len(order),
		StatusDistribution: make(map[string]int),
		UnlabeledIDs:       make([]int64, 0),
	}
	for _, id := range order {
		if labeled[id] {
			ov.LabeledClusters++
		} else {
			ov.UnlabeledIDs = append(ov.UnlabeledIDs, id)
		}
	}
	ov.UnlabeledClusters = ov.TotalClusters - ov.LabeledClusters
	if ov.TotalClusters > 0 {
		ov.CoveragePercent = round2(float64(ov.LabeledClusters) / float64(ov.TotalClusters) * 100)
	}
	for _, r := range rows {
		status := unlabeledKey
		if r.LabelStatus != nil {
			status = *r.LabelStatus
		}
		ov.StatusDistribution[status]++
	}
	return ov
}

// Summary groups labeled clusters by label. Groups are alphabetical unless
// sortBy is SortLabelCount, which orders them by cluster count, largest first.
// FilterManual keeps only clusters that ended in manual review.
func Summary(rows []models.Row, sortBy, filter string) models.Summary {
	s := models.Summary{Overview: Overview(rows), LabelGroups: make([]models.LabelGroup, 0)}

	byLabel := make(map[string][]int64)
	seen := make(map[int64]bool)
	for _, r := range rows {
		if r.ClusterLabel == nil || seen[r.ClusterID] {
			continue
		}
		if filter == FilterManual && (r.LabelStatus == nil || *r.LabelStatus != string(labeling.StatusManual)) {
			continue
		}
		seen[r.ClusterID] = true
		byLabel[*r.ClusterLabel] = append(byLabel[*r.ClusterLabel], r.ClusterID)
	}

	for label, ids := range byLabel {
		s.LabelGroups = append(s.LabelGroups, models.LabelGroup{Label: label, ClusterCount: len(ids), ClusterIDs: ids})
	}
	sort.Slice(s.LabelGroups, func(i, j int) bool { return s.LabelGroups[i].Label < s.LabelGroups[j].Label })
	if sortBy == SortLabelCount {
		sort.SliceStable(s.LabelGroups, func(i, j int) bool {
			return s.LabelGroups[i].ClusterCount > s.LabelGroups[j].ClusterCount
		})
	}

	best := 0
	for _, g := range s.LabelGroups {
		if g.ClusterCount > best {
			s.DominantLabel, best = g.Label, g.ClusterCount
		}
	}
	if best > 0 && s.TotalClusters > 0 {
		s.DominantLabelRatio = round2(float64(best) / float64(s.TotalClusters) * 100)
	}
	return s
}

func clusterState(rows []models.Row) ([]int64, map[int64]bool) {
	labeled := make(map[int64]bool)
	order := make([]int64, 0)
	for _, r := range rows {
		if _, ok := labeled[r.ClusterID]; !ok {
			order = append(order, r.ClusterID)
			labeled[r.ClusterID] = false
		}
		if r.Labeled() {
			labeled[r.ClusterID] = true
		}
	}
	return order, labeled
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
