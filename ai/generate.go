package ai

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidCount = errors.New("count must be positive")
	ErrSeedTooShort = errors.New("seed is shorter than the window")
	ErrNoPredictor  = errors.New("no predictor")
)

// Predictor guesses the normalized note that follows a window of
// normalized notes. The window must not be retained.
type Predictor interface {
	Predict(window []Point) (Point, error)
}

// PredictorFunc adapts a function to a Predictor
type PredictorFunc func(window []Point) (Point, error)

func (f PredictorFunc) Predict(window []Point) (Point, error) {
	return f(window)
}

// StepError is returned when a generation step could not produce a
// note. The notes generated before it are still returned.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("generation step %d: %s", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Generator drives a predictor one note at a time. Every new note
// is appended to the history, so the next window contains it.
type Generator struct {
	Predictor    Predictor
	Parameters   Parameters
	WindowLength int
	// Sampler perturbs predictions when the temperature is above
	// zero. A time seeded one is used if nil.
	Sampler *Sampler
}

// Generate returns count new notes following seed. On a failed
// step or a cancelled context the notes generated so far are
// returned together with the error.
func (g *Generator) Generate(ctx context.Context, seed music.Sequence, count int, temperature float64) (music.Sequence, error) {
	logger := log.WithFields(log.Fields{
		"function": "Generator.Generate",
	})
	if err := g.validate(seed, count, temperature); err != nil {
		return nil, err
	}
	sampler := g.Sampler
	if sampler == nil {
		sampler = NewSeededSampler(newSeed())
	}

	// only the normalized history is needed to build windows
	history, err := Normalize(seed, g.Parameters)
	if err != nil {
		return nil, err
	}
	generated := make(music.Sequence, 0, count)
	window := make([]Point, g.WindowLength)
	for step := 0; step < count; step++ {
		if err = ctx.Err(); err != nil {
			logger.Debugf("Stopped after %d of %d notes", step, count)
			return generated, errors.Wrapf(err, "generated %d of %d notes", step, count)
		}
		copy(window, history[len(history)-g.WindowLength:])
		note, err := g.step(window, temperature, sampler)
		if err != nil {
			logger.Warnf("Step %d failed: %s", step, err)
			return generated, &StepError{Step: step, Err: err}
		}
		generated = append(generated, note)
		history = append(history, g.Parameters.normalize(note))
	}
	logger.Debugf("Generated %d notes", len(generated))
	return generated, nil
}

func (g *Generator) step(window []Point, temperature float64, sampler *Sampler) (note music.NoteEvent, err error) {
	pt, err := g.Predictor.Predict(window)
	if err != nil {
		return
	}
	if !finite(pt.Pitch) || !finite(pt.Duration) {
		err = errors.Wrapf(ErrNonFinite, "predicted %+v", pt)
		return
	}
	if pt.Pitch, err = sampler.Perturb(pt.Pitch, temperature, 0, 1); err != nil {
		return
	}
	if pt.Duration, err = sampler.Perturb(pt.Duration, temperature, 0, 1); err != nil {
		return
	}
	return Denormalize(pt, g.Parameters)
}

func (g *Generator) validate(seed music.Sequence, count int, temperature float64) error {
	if g.Predictor == nil {
		return ErrNoPredictor
	}
	if g.WindowLength < 1 {
		return errors.Wrapf(ErrWindowLength, "got %d", g.WindowLength)
	}
	if count < 1 {
		return errors.Wrapf(ErrInvalidCount, "got %d", count)
	}
	if temperature < 0 {
		return errors.Wrapf(ErrNegativeTemperature, "got %g", temperature)
	}
	if len(seed) < g.WindowLength {
		return errors.Wrapf(ErrSeedTooShort, "%d notes, window length %d", len(seed), g.WindowLength)
	}
	return g.Parameters.Validate()
}
