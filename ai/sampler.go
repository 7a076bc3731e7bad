package ai

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

var ErrNegativeTemperature = errors.New("temperature must not be negative")

// Sampler adds gaussian noise to predictions. It is not safe for
// concurrent use; give every generation run its own.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler uses src for all of its randomness
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// NewSeededSampler is a reproducible sampler
func NewSeededSampler(seed int64) *Sampler {
	return NewSampler(rand.NewSource(seed))
}

// Perturb returns value unchanged at temperature 0. Otherwise it
// adds noise with standard deviation temperature and clamps the
// result into [lo,hi].
func (s *Sampler) Perturb(value, temperature, lo, hi float64) (float64, error) {
	if temperature < 0 {
		return 0, errors.Wrapf(ErrNegativeTemperature, "got %g", temperature)
	}
	if temperature == 0 {
		return value, nil
	}
	return math.Max(lo, math.Min(hi, value+s.rng.NormFloat64()*temperature)), nil
}
