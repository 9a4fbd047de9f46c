package batch

import (
	"context"
	"errors"
	"testing"

	"clusterlabel/internal/labeling"
	"clusterlabel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEngine struct {
	calls []int64
}

func (f *fakeEngine) Reconcile(ctx context.Context, docs []labeling.Document, opts labeling.Options) labeling.Decision {
	f.calls = append(f.calls, docs[0].ClusterID)
	records := make([]labeling.LabelRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, labeling.LabelRecord{Filename: d.Filename, Label: "Besluit", Explanation: "één besluit"})
	}
	return labeling.Decision{ClusterLabel: "Besluit", Labels: records, Status: labeling.StatusAuto, SimilarityScore: 1}
}

type recordingSink struct {
	saved map[int64]labeling.Decision
	fail  map[int64]error
}

func (s *recordingSink) SaveDecision(ctx context.Context, id int64, d labeling.Decision) error {
	if err := s.fail[id]; err != nil {
		return err
	}
	if s.saved == nil {
		s.saved = make(map[int64]labeling.Decision)
	}
	s.saved[id] = d
	return nil
}

func strPtr(s string) *string { return &s }

func sampleRows() []models.Row {
	return []models.Row{
		{AssetID: "1", Filename: "a.pdf", ClusterID: 10},
		{AssetID: "2", Filename: "b.pdf", ClusterID: 20, ClusterLabel: strPtr("Rapport"), LabelStatus: strPtr("Auto")},
		{AssetID: "3", Filename: "c.pdf", ClusterID: 10},
		{AssetID: "4", Filename: "d.pdf", ClusterID: 30},
	}
}

func TestRunOutcomes(t *testing.T) {
	eng := &fakeEngine{}
	sink := &recordingSink{}
	snap := NewSnapshot(sampleRows())
	out := NewOrchestrator(eng, labeling.Options{}, nil).Run(context.Background(), snap, []int64{10, 20, 99}, sink)

	require.Len(t, out, 3)

	assert.False(t, out[0].Error)
	assert.False(t, out[0].Skip)
	assert.Equal(t, int64(10), out[0].ClusterID)
	assert.Equal(t, "Besluit", out[0].ClusterLabel)
	assert.Equal(t, labeling.StatusAuto, out[0].Status)
	assert.Len(t, out[0].LabelsUsed, 2)

	assert.Equal(t, models.Outcome{Skip: true, ClusterID: 20, ClusterLabel: "Rapport", Message: "Cluster 20 already labeled"}, out[1])
	assert.Equal(t, models.Outcome{Error: true, ClusterID: 99, Message: "Cluster 99 not found"}, out[2])

	assert.Equal(t, []int64{10}, eng.calls)
	require.Contains(t, sink.saved, int64(10))

	label, ok := snap.Label(10)
	require.True(t, ok)
	assert.Equal(t, "Besluit", label)
	rows, _ := snap.Cluster(10)
	assert.Equal(t, `[{"filename":"a.pdf","label":"Besluit","explanation":"één besluit"},{"filename":"c.pdf","label":"Besluit","explanation":"één besluit"}]`, *rows[1].LabelsUsed)
}

func TestRunRepeatedIDIsSkipped(t *testing.T) {
	eng := &fakeEngine{}
	out := NewOrchestrator(eng, labeling.Options{}, nil).Run(context.Background(), NewSnapshot(sampleRows()), []int64{30, 30}, nil)

	require.Len(t, out, 2)
	assert.False(t, out[0].Skip)
	assert.True(t, out[1].Skip)
	assert.Equal(t, "Cluster 30 already labeled", out[1].Message)
	assert.Len(t, eng.calls, 1)
}

func TestRunSinkFailureContinues(t *testing.T) {
	eng := &fakeEngine{}
	sink := &recordingSink{fail: map[int64]error{10: errors.New("disk full")}}
	snap := NewSnapshot(sampleRows())
	out := NewOrchestrator(eng, labeling.Options{}, nil).Run(context.Background(), snap, []int64{10, 30}, sink)

	require.Len(t, out, 2)
	assert.True(t, out[0].Error)
	assert.Equal(t, "persist cluster 10: disk full", out[0].Message)
	assert.False(t, out[1].Error)
	assert.Equal(t, []int64{10, 30}, eng.calls)

	_, labeled := snap.Label(10)
	assert.False(t, labeled)
}

func TestRunCancelledReportsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &fakeEngine{}
	out := NewOrchestrator(eng, labeling.Options{}, nil).Run(ctx, NewSnapshot(sampleRows()), []int64{10, 30}, nil)

	require.Len(t, out, 2)
	for _, o := range out {
		assert.True(t, o.Error)
		assert.Contains(t, o.Message, "not processed")
	}
	assert.Empty(t, eng.calls)
}

func TestSnapshotIsACopy(t *testing.T) {
	rows := sampleRows()
	snap := NewSnapshot(rows)
	rows[0].Filename = "changed.pdf"

	got, ok := snap.Cluster(10)
	require.True(t, ok)
	assert.Equal(t, "a.pdf", got[0].Filename)
	assert.Equal(t, []int64{10, 20, 30}, snap.IDs())
	assert.Len(t, snap.Rows(), 4)
}

func TestTargets(t *testing.T) {
	snap := NewSnapshot(sampleRows())
	assert.Equal(t, []int64{10, 30}, Targets(snap, 0))
	assert.Equal(t, []int64{10}, Targets(snap, 1))
	assert.Equal(t, []int64{10, 30}, Targets(snap, 5))
}
