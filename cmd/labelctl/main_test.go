package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clusterlabel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	page := strings.Repeat("Geachte voorzitter, hierbij ontvangt u de brief over de begroting. ", 3)
	csv := "asset_id,filename,firstpagetxt,cluster_id\n" +
		fmt.Sprintf("1,a.pdf,%q,1\n2,b.pdf,%q,1\n3,c.pdf,%q,2\n", page, page, page)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets.csv"), []byte(csv), 0o644))

	yaml := fmt.Sprintf(`data_source: csv
data_dir: %s
csv_path: %s
llm_providers: mock
embed_providers: mock
provider_max_retries: 0
log_level: error
`, dir, filepath.Join(dir, "assets.csv"))
	cfgPath := filepath.Join(dir, "labelctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLabelSummaryReset(t *testing.T) {
	cfg := setupWorkspace(t)

	out, err := run(t, "--config", cfg, "label", "--all", "--json")
	require.NoError(t, err)
	var outcomes []models.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Error, o.Message)
		assert.NotEmpty(t, o.ClusterLabel)
	}

	out, err = run(t, "--config", cfg, "label", "--cluster", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")

	out, err = run(t, "--config", cfg, "summary")
	require.NoError(t, err)
	var summary models.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.LabeledClusters)
	assert.Equal(t, 100.0, summary.CoveragePercent)

	_, err = run(t, "--config", cfg, "reset")
	require.Error(t, err)

	out, err = run(t, "--config", cfg, "reset", "--confirm")
	require.NoError(t, err)
	assert.Equal(t, "reset 2 clusters\n", out)
}

func TestLabelNeedsATarget(t *testing.T) {
	cfg := setupWorkspace(t)
	_, err := run(t, "--config", cfg, "label")
	require.Error(t, err)

	_, err = run(t, "--config", cfg, "label", "--cluster", "1", "--all")
	require.Error(t, err)
}

func TestLabelClusterZero(t *testing.T) {
	cfg := setupWorkspace(t)
	page := strings.Repeat("Geachte voorzitter, hierbij ontvangt u de brief over de begroting. ", 3)
	csv := "asset_id,filename,firstpagetxt,cluster_id\n" +
		fmt.Sprintf("1,a.pdf,%q,0\n2,b.pdf,%q,0\n", page, page)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfg), "assets.csv"), []byte(csv), 0o644))

	out, err := run(t, "--config", cfg, "label", "--cluster", "0", "--json")
	require.NoError(t, err)
	var outcomes []models.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Error, outcomes[0].Message)
	assert.Equal(t, int64(0), outcomes[0].ClusterID)
	assert.NotEmpty(t, outcomes[0].ClusterLabel)
}
