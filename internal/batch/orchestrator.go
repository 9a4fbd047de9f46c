package batch

import (
	"context"
	"fmt"

	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"

	"go.uber.org/zap"
)

// Reconciler decides the label of one cluster.
type Reconciler interface {
	Reconcile(ctx context.Context, docs []labeling.Document, opts labeling.Options) labeling.Decision
}

// DecisionSink persists a decision. A nil sink keeps decisions in the
// snapshot only.
type DecisionSink interface {
	SaveDecision(ctx context.Context, clusterID int64, d labeling.Decision) error
}

// Orchestrator labels clusters one at a time against a snapshot.
type Orchestrator struct {
	engine Reconciler
	opts   labeling.Options
	logger *zap.Logger
}

func NewOrchestrator(engine Reconciler, opts labeling.Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{engine: engine, opts: opts, logger: logger}
}

// Run processes ids in order and returns one outcome per id. A failing
// cluster never stops the run; a cancelled context does, and every
// remaining cluster is reported as an error.
func (o *Orchestrator) Run(ctx context.Context, snap *Snapshot, ids []int64, sink DecisionSink) []models.Outcome {
	out := make([]models.Outcome, 0, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("labeling run interrupted", zap.Int("remaining", len(ids)-i), zap.Error(err))
			for _, rest := range ids[i:] {
				out = append(out, models.Outcome{
					Error:     true,
					ClusterID: rest,
					Message:   fmt.Sprintf("Cluster %d not processed: %v", rest, err),
				})
			}
			break
		}
		out = append(out, o.Label(ctx, snap, id, sink))
	}
	return out
}

// Label processes a single cluster.
func (o *Orchestrator) Label(ctx context.Context, snap *Snapshot, id int64, sink DecisionSink) models.Outcome {
	rows, ok := snap.Cluster(id)
	if !ok {
		return models.Outcome{Error: true, ClusterID: id, Message: fmt.Sprintf("Cluster %d not found", id)}
	}
	if label, labeled := snap.Label(id); labeled {
		return models.Outcome{
			Skip:         true,
			ClusterID:    id,
			ClusterLabel: label,
			Message:      fmt.Sprintf("Cluster %d already labeled", id),
		}
	}

	o.logger.Info("labeling cluster", zap.Int64("cluster_id", id), zap.Int("documents", len(rows)))
	d := o.engine.Reconcile(ctx, models.Documents(rows), o.opts)

	labelsUsed, err := models.EncodeLabelsUsed(d.Labels)
	if err != nil {
		return models.Outcome{Error: true, ClusterID: id, Message: fmt.Sprintf("persist cluster %d: %v", id, err)}
	}
	if sink != nil {
		if err := sink.SaveDecision(ctx, id, d); err != nil {
			o.logger.Error("persist decision failed", zap.Int64("cluster_id", id), zap.Error(err))
			return models.Outcome{Error: true, ClusterID: id, Message: fmt.Sprintf("persist cluster %d: %v", id, err)}
		}
	}
	snap.apply(id, d.ClusterLabel, string(d.Status), labelsUsed)

	o.logger.Info("cluster labeled",
		zap.Int64("cluster_id", id),
		zap.String("cluster_label", d.ClusterLabel),
		zap.String("status", string(d.Status)),
		zap.Float64("similarity_score", d.SimilarityScore))
	return models.Outcome{
		ClusterID:       id,
		ClusterLabel:    d.ClusterLabel,
		Status:          d.Status,
		SimilarityScore: d.SimilarityScore,
		LabelsUsed:      d.Labels,
	}
}
