package workflows

import (
	"fmt"
	"time"

	"clusterlabel/internal/activities"
	"clusterlabel/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetLabelProgress = "GetLabelProgress"

const (
	clusterPending = "pending"
	clusterRunning = "running"
	clusterDone    = "done"
	clusterSkipped = "skipped"
	clusterFailed  = "failed"
)

// ClusterLabelWorkflow labels the unlabeled clusters one at a time. Clusters
// are never labeled concurrently: each decision is written back before the
// next cluster starts.
func ClusterLabelWorkflow(ctx workflow.Context, input ClusterLabelInput) (ClusterLabelResult, error) {
	progress := ClusterLabelProgress{RunID: input.RunID, PerCluster: map[int64]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetLabelProgress, func() (ClusterLabelProgress, error) {
		return progress, nil
	}); err != nil {
		return ClusterLabelResult{}, err
	}

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	var list activities.ListUnlabeledOutput
	if err := workflow.ExecuteActivity(listCtx, "ListUnlabeledClustersActivity", activities.ListUnlabeledInput{
		Source: input.Source,
		Limit:  input.Limit,
	}).Get(ctx, &list); err != nil {
		return ClusterLabelResult{}, err
	}
	progress.Total = len(list.ClusterIDs)
	for _, id := range list.ClusterIDs {
		progress.PerCluster[id] = clusterPending
	}

	// Model calls dominate; a cluster of three samples with shrink retries can
	// take several minutes.
	labelCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    2,
		},
	})
	result := ClusterLabelResult{RunID: input.RunID, Outcomes: make([]models.Outcome, 0, len(list.ClusterIDs))}
	for _, id := range list.ClusterIDs {
		progress.PerCluster[id] = clusterRunning
		var out models.Outcome
		err := workflow.ExecuteActivity(labelCtx, "LabelClusterActivity", activities.LabelClusterInput{
			Source:    input.Source,
			ClusterID: id,
		}).Get(ctx, &out)
		if err != nil {
			out = models.Outcome{Error: true, ClusterID: id, Message: fmt.Sprintf("Cluster %d failed: %v", id, err)}
		}
		switch {
		case out.Error:
			progress.Failed++
			progress.PerCluster[id] = clusterFailed
		case out.Skip:
			progress.Skipped++
			progress.PerCluster[id] = clusterSkipped
		default:
			progress.Done++
			progress.PerCluster[id] = clusterDone
		}
		result.Outcomes = append(result.Outcomes, out)
	}

	var report activities.WriteRunReportOutput
	if err := workflow.ExecuteActivity(listCtx, "WriteRunReportActivity", activities.WriteRunReportInput{
		RunID:    input.RunID,
		Outcomes: result.Outcomes,
	}).Get(ctx, &report); err != nil {
		workflow.GetLogger(ctx).Warn("write run report failed", "run_id", input.RunID, "error", err)
	}
	result.ReportPath = report.Path
	return result, nil
}
