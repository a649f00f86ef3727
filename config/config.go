// Package config defines and validates the dataset-protection parameters
// shared by the create, verify, audit, and repair operations.
package config

import (
	"runtime"

	"github.com/rTiGd2/ParXive/build"
	"github.com/rTiGd2/ParXive/errs"
)

// defaultThreads varies by release the same way Sia's build.Var selects a
// different constant per build tag; ParXive only varies the default
// worker-thread count (testing wants determinism, standard wants all
// cores), since chunk size and parity percentage have no meaningful
// "testing-mode" variant.
var defaultThreads = build.Select(build.Var{
	Standard: runtime.NumCPU(),
	Dev:      runtime.NumCPU(),
	Testing:  2,
}).(int)

// Config holds the validated parameters for one create operation.
type Config struct {
	ChunkSize      int
	StripeK        int
	ParityPct      int
	VolumeSizes    []int64
	InterleaveFiles bool
	Threads        int
}

// DefaultConfig returns a Config with the package's defaults; callers
// override fields from CLI flags before calling Validate.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       4 << 20, // 4 MiB
		StripeK:         8,
		ParityPct:       25,
		VolumeSizes:     []int64{1 << 30}, // 1 GiB
		InterleaveFiles: false,
		Threads:         defaultThreads,
	}
}

// ParityM computes M = ceil(K * parity_pct / 100) per spec.md's stripe
// formula.
func (c Config) ParityM() int {
	return (c.StripeK*c.ParityPct + 99) / 100
}

// Validate checks that c's fields form a legal configuration, returning a
// ConfigError describing the first violation found.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errs.New(errs.KindConfig, "Validate", nil).WithVariant("InvalidChunkSize")
	}
	if c.StripeK < 1 || c.StripeK > 255 {
		return errs.New(errs.KindConfig, "Validate", nil).WithVariant("InvalidStripeK")
	}
	if c.ParityPct < 0 {
		return errs.New(errs.KindConfig, "Validate", nil).WithVariant("InvalidParityPct")
	}
	m := c.ParityM()
	if c.StripeK+m > 255 {
		return errs.New(errs.KindConfig, "Validate", nil).WithVariant("TooManyShards")
	}
	if len(c.VolumeSizes) == 0 {
		return errs.New(errs.KindConfig, "Validate", nil).WithVariant("NoVolumeSizes")
	}
	for _, size := range c.VolumeSizes {
		if size <= 0 {
			return errs.New(errs.KindConfig, "Validate", nil).WithVariant("InvalidVolumeSize")
		}
	}
	if c.Threads < 1 {
		return errs.New(errs.KindConfig, "Validate", nil).WithVariant("InvalidThreads")
	}
	return nil
}
