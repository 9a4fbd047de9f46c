package labeling

import "clusterlabel/internal/config"

const (
	DefaultMaxInputChars       = 40000
	DefaultMinInputChars       = 8000
	DefaultMinTextLength       = 100
	DefaultSampleSize          = 3
	DefaultSimilarityThreshold = 0.7
	// DefaultMajorityThreshold is a loose majority: 2 of 3 and 3 of 5 both pass.
	DefaultMajorityThreshold = 0.6
	DefaultSampleSeed        = 42
)

// Settings holds every tunable the engine reads. Zero fields fall back to the
// defaults above, except SampleSeed: 0 is a valid seed.
type Settings struct {
	MaxInputChars       int
	MinInputChars       int
	MinTextLength       int
	SampleSize          int
	SimilarityThreshold float64
	MajorityThreshold   float64
	SampleSeed          int64
}

func DefaultSettings() Settings {
	return Settings{
		MaxInputChars:       DefaultMaxInputChars,
		MinInputChars:       DefaultMinInputChars,
		MinTextLength:       DefaultMinTextLength,
		SampleSize:          DefaultSampleSize,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MajorityThreshold:   DefaultMajorityThreshold,
		SampleSeed:          DefaultSampleSeed,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxInputChars <= 0 {
		s.MaxInputChars = d.MaxInputChars
	}
	if s.MinInputChars <= 0 {
		s.MinInputChars = d.MinInputChars
	}
	if s.MinTextLength <= 0 {
		s.MinTextLength = d.MinTextLength
	}
	if s.SampleSize <= 0 {
		s.SampleSize = d.SampleSize
	}
	if s.SimilarityThreshold <= 0 {
		s.SimilarityThreshold = d.SimilarityThreshold
	}
	if s.MajorityThreshold <= 0 {
		s.MajorityThreshold = d.MajorityThreshold
	}
	return s
}

// SettingsFromConfig copies the engine knobs out of the service configuration.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		MaxInputChars:       cfg.InputMaxChars,
		MinInputChars:       cfg.InputMinChars,
		MinTextLength:       cfg.MinTextLength,
		SampleSize:          cfg.SampleSize,
		SimilarityThreshold: cfg.SimilarityThreshold,
		MajorityThreshold:   cfg.MajorityThreshold,
		SampleSeed:          cfg.SampleSeed,
	}.withDefaults()
}
