package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListUnlabeledClustersActivity)
	w.RegisterActivity(a.LabelClusterActivity)
	w.RegisterActivity(a.WriteRunReportActivity)
}
