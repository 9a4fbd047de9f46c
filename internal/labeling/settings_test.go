package labeling

import (
	"testing"

	"clusterlabel/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestSettingsKeepZeroSeed(t *testing.T) {
	t.Setenv("CLUSTERLABEL_SAMPLE_SEED", "0")
	s := SettingsFromConfig(config.Load()).withDefaults()
	assert.Equal(t, int64(0), s.SampleSeed)
	assert.Equal(t, DefaultSampleSize, s.SampleSize)
}

func TestSettingsUnsetSeedIsDefault(t *testing.T) {
	t.Setenv("CLUSTERLABEL_SAMPLE_SEED", "")
	s := SettingsFromConfig(config.Load()).withDefaults()
	assert.Equal(t, int64(DefaultSampleSeed), s.SampleSeed)
}
