package activities

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"clusterlabel/internal/batch"
	"clusterlabel/internal/config"
	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"
	"clusterlabel/internal/providers"
	"clusterlabel/internal/storage"
	"clusterlabel/internal/util"

	"go.uber.org/zap"
)

type Activities struct {
	cfg    config.Config
	stores *storage.Registry
	orch   *batch.Orchestrator
	logger *zap.Logger
}

func New(cfg config.Config, logger *zap.Logger) (*Activities, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pm, err := providers.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	engine := labeling.NewEngineFromConfig(cfg, pm, logger)
	return NewWithEngine(cfg, storage.NewConfigRegistry(cfg, logger), engine, logger), nil
}

func NewWithEngine(cfg config.Config, stores *storage.Registry, engine batch.Reconciler, logger *zap.Logger) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{
		cfg:    cfg,
		stores: stores,
		orch:   batch.NewOrchestrator(engine, labeling.Options{}, logger),
		logger: logger,
	}
}

// Close releases the stores opened by the activities.
func (a *Activities) Close() {
	a.stores.Close()
}

func (a *Activities) ListUnlabeledClustersActivity(ctx context.Context, in ListUnlabeledInput) (ListUnlabeledOutput, error) {
	store, err := a.stores.Get(ctx, in.Source)
	if err != nil {
		return ListUnlabeledOutput{}, err
	}

	rows, err := store.UnlabeledRows(ctx, in.Limit)
	if err != nil {
		return ListUnlabeledOutput{}, err
	}
	return ListUnlabeledOutput{ClusterIDs: batch.Targets(batch.NewSnapshot(rows), in.Limit)}, nil
}

// LabelClusterActivity labels one cluster and writes the decision back. A
// missing cluster is a normal outcome, not an activity failure.
func (a *Activities) LabelClusterActivity(ctx context.Context, in LabelClusterInput) (models.Outcome, error) {
	store, err := a.stores.Get(ctx, in.Source)
	if err != nil {
		return models.Outcome{}, err
	}

	rows, err := store.ClusterRows(ctx, in.ClusterID)
	if err != nil && !errors.Is(err, storage.ErrClusterNotFound) {
		return models.Outcome{}, fmt.Errorf("load cluster %d: %w", in.ClusterID, err)
	}
	return a.orch.Label(ctx, batch.NewSnapshot(rows), in.ClusterID, store), nil
}

func (a *Activities) WriteRunReportActivity(ctx context.Context, in WriteRunReportInput) (WriteRunReportOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataDir, "runs", in.RunID+".json")
	if err := util.WriteJSONAtomic(path, in); err != nil {
		return WriteRunReportOutput{}, err
	}
	return WriteRunReportOutput{Path: path}, nil
}
