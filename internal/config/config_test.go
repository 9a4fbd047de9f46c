package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLUSTERLABEL_SAMPLE_SIZE", "")
	t.Setenv("CLUSTERLABEL_DATA_DIR", "")
	t.Setenv("CLUSTERLABEL_CSV_PATH", "")
	cfg := Load()
	require.Equal(t, 3, cfg.SampleSize)
	require.Equal(t, 0.7, cfg.SimilarityThreshold)
	require.Equal(t, 0.6, cfg.MajorityThreshold)
	require.Equal(t, 40000, cfg.InputMaxChars)
	require.Equal(t, 8000, cfg.InputMinChars)
	require.Equal(t, int64(42), cfg.SampleSeed)
	require.Equal(t, filepath.Join("data", "core_assets_sample.csv"), filepath.Clean(cfg.CSVPath))
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLUSTERLABEL_SAMPLE_SIZE", "5")
	t.Setenv("CLUSTERLABEL_SIMILARITY_THRESHOLD", "0.85")
	t.Setenv("CLUSTERLABEL_INPUT_MAX_CHARS", "not-a-number")
	cfg := Load()
	require.Equal(t, 5, cfg.SampleSize)
	require.Equal(t, 0.85, cfg.SimilarityThreshold)
	require.Equal(t, 40000, cfg.InputMaxChars)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusterlabel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_source: DB\nsample_size: 7\nmajority_threshold: 0.667\n"), 0o644))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, SourceDB, cfg.DataSource)
	require.Equal(t, 7, cfg.SampleSize)
	require.Equal(t, 0.667, cfg.MajorityThreshold)
}

func TestValidateRejectsBadSource(t *testing.T) {
	cfg := Load()
	cfg.DataSource = "mysql"
	require.Error(t, cfg.Validate())
}
