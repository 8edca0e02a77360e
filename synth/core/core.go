// Package core provides shared configuration for the synthesis packages.
package core

// Reference frequencies and slopes shared across the synthesis chain.
const (
	// RefFreq is the slope reference frequency: spectral shaping leaves
	// gain at this frequency untouched regardless of the target slope.
	RefFreq = 800.0

	// CurveRefFreq is the implicit (0 dB) reference point of a
	// frequency-response curve.
	CurveRefFreq = 1000.0

	// PinkSlopeDBPerOct is the inherent spectral slope of the pink noise
	// source.
	PinkSlopeDBPerOct = -3.0
)

// Config defines common synthesis settings.
type Config struct {
	SampleRate float64
	BlockSize  int
	MinFreq    float64 // lower audible bound in Hz
	MaxFreq    float64 // upper audible bound in Hz
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns sensible defaults for offline and streaming use.
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		BlockSize:  1024,
		MinFreq:    20,
		MaxFreq:    20000,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the processing block size.
func WithBlockSize(blockSize int) Option {
	return func(cfg *Config) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// WithFrequencyRange sets custom lower and upper audible frequency limits.
func WithFrequencyRange(lower, upper float64) Option {
	return func(cfg *Config) {
		if lower > 0 && upper > lower {
			cfg.MinFreq = lower
			cfg.MaxFreq = upper
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Clamp limits v to [minV, maxV].
func Clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
