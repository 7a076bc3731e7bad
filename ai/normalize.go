package ai

import (
	"math"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
)

// PitchScale maps the whole pitch range onto [0,1]
const PitchScale = music.MaxPitch

var (
	ErrDegenerateScale   = errors.New("duration scale must be positive")
	ErrMissingParameters = errors.New("normalization parameters missing")
	ErrNonFinite         = errors.New("non-finite value")
)

// Parameters are the scales used to map notes into the [0,1]
// space the network works in. They belong to a trained network
// and must be reused as-is for generation.
type Parameters struct {
	PitchScale    int `json:"pitch_scale"`
	DurationScale int `json:"duration_scale"`
}

// Point is a normalized note
type Point struct {
	Pitch    float64
	Duration float64
}

// Validate returns a configuration error for unusable scales
func (p Parameters) Validate() error {
	if p.PitchScale == 0 && p.DurationScale == 0 {
		return ErrMissingParameters
	}
	if p.PitchScale != PitchScale {
		return errors.Wrapf(ErrDegenerateScale, "pitch scale %d", p.PitchScale)
	}
	if p.DurationScale < 1 {
		return errors.Wrapf(ErrDegenerateScale, "duration scale %d", p.DurationScale)
	}
	return nil
}

// ComputeScale finds the longest note in the whole corpus
func ComputeScale(corpus []music.Sequence) (p Parameters, err error) {
	p.PitchScale = PitchScale
	for _, seq := range corpus {
		for _, n := range seq {
			if n.Duration > p.DurationScale {
				p.DurationScale = n.Duration
			}
		}
	}
	if p.DurationScale <= 0 {
		err = errors.Wrap(ErrDegenerateScale, "corpus has no note with a positive duration")
	}
	return
}

// Normalize divides pitch and duration by their scales
func Normalize(seq music.Sequence, p Parameters) ([]Point, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	points := make([]Point, len(seq))
	for i, n := range seq {
		points[i] = p.normalize(n)
	}
	return points, nil
}

func (p Parameters) normalize(n music.NoteEvent) Point {
	return Point{
		Pitch:    float64(n.Pitch) / float64(p.PitchScale),
		Duration: float64(n.Duration) / float64(p.DurationScale),
	}
}

// Denormalize maps a point back to a note, rounding and clamping
// pitch into [0,127] and duration into [1,DurationScale]
func Denormalize(pt Point, p Parameters) (music.NoteEvent, error) {
	if err := p.Validate(); err != nil {
		return music.NoteEvent{}, err
	}
	if !finite(pt.Pitch) || !finite(pt.Duration) {
		return music.NoteEvent{}, errors.Wrapf(ErrNonFinite, "point %+v", pt)
	}
	return music.NoteEvent{
		Pitch:    clampInt(int(math.Round(pt.Pitch*float64(p.PitchScale))), 0, music.MaxPitch),
		Duration: clampInt(int(math.Round(pt.Duration*float64(p.DurationScale))), 1, p.DurationScale),
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
