package models

import (
	"encoding/json"
	"testing"

	"clusterlabel/internal/labeling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLabelsUsedKeepsNonASCII(t *testing.T) {
	raw, err := EncodeLabelsUsed([]labeling.LabelRecord{
		{Filename: "brief.pdf", Label: "Beleidsnota", Explanation: "over financiën & <begroting>"},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"filename":"brief.pdf","label":"Beleidsnota","explanation":"over financiën & <begroting>"}]`, raw)

	back, err := DecodeLabelsUsed(raw)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "over financiën & <begroting>", back[0].Explanation)
}

func TestEncodeLabelsUsedEmpty(t *testing.T) {
	raw, err := EncodeLabelsUsed(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	out, err := DecodeLabelsUsed("  ")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRowApplyAndClear(t *testing.T) {
	r := Row{AssetID: "a1", ClusterID: 4}
	assert.False(t, r.Labeled())
	r.Apply("Besluit", "Auto", "[]")
	require.True(t, r.Labeled())
	assert.Equal(t, "Besluit", *r.ClusterLabel)
	r.ClearLabel()
	assert.False(t, r.Labeled())
	assert.Nil(t, r.LabelsUsed)
}

func TestOutcomeJSONShapes(t *testing.T) {
	cases := []struct {
		name string
		in   Outcome
		want string
	}{
		{
			name: "not found",
			in:   Outcome{Error: true, ClusterID: 9, Message: "Cluster 9 not found"},
			want: `{"error":true,"message":"Cluster 9 not found","cluster_id":9}`,
		},
		{
			name: "already labeled",
			in:   Outcome{Skip: true, ClusterID: 2, ClusterLabel: "Brief & Nota", Message: "Cluster 2 already labeled"},
			want: `{"error":false,"skip":true,"message":"Cluster 2 already labeled","cluster_id":2,"cluster_label":"Brief & Nota"}`,
		},
		{
			name: "processed",
			in:   Outcome{ClusterID: 1, ClusterLabel: "Besluit", Status: labeling.StatusAuto, SimilarityScore: 1},
			want: `{"error":false,"skip":false,"cluster_id":1,"cluster_label":"Besluit","status":"Auto","similarity_score":1,"labels_used":[]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestOutcomeJSONRoundTrip(t *testing.T) {
	in := Outcome{
		ClusterID:       0,
		ClusterLabel:    "Kamerbrief",
		Status:          labeling.StatusAutoSimilar,
		SimilarityScore: 0.812,
		LabelsUsed:      []labeling.LabelRecord{{Filename: "a.pdf", Label: "Kamerbrief", Explanation: "brief"}},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var back Outcome
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, in, back)
}
