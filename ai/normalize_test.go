package ai

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractThenNormalize(t *testing.T) {
	notes := music.Extract(music.Stream{music.Start(60, 0), music.Stop(60, 10)})
	require.Equal(t, music.Sequence{{Pitch: 60, Duration: 10}}, notes)

	p, err := ComputeScale([]music.Sequence{notes})
	require.NoError(t, err)
	assert.Equal(t, Parameters{PitchScale: 127, DurationScale: 10}, p)

	points, err := Normalize(notes, p)
	require.NoError(t, err)
	assert.Equal(t, []Point{{Pitch: 60.0 / 127, Duration: 1.0}}, points)
}

func TestComputeScale(t *testing.T) {
	p, err := ComputeScale([]music.Sequence{
		{{Pitch: 60, Duration: 3}, {Pitch: 62, Duration: 0}},
		{{Pitch: 64, Duration: 12}},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, p.DurationScale)
	assert.Equal(t, 127, p.PitchScale)

	_, err = ComputeScale([]music.Sequence{{{Pitch: 60, Duration: 0}}})
	assert.True(t, errors.Is(err, ErrDegenerateScale))

	_, err = ComputeScale(nil)
	assert.True(t, errors.Is(err, ErrDegenerateScale))
}

func TestNormalizeRejectsBadParameters(t *testing.T) {
	seq := music.Sequence{{Pitch: 60, Duration: 1}}
	_, err := Normalize(seq, Parameters{PitchScale: 127, DurationScale: 0})
	assert.True(t, errors.Is(err, ErrDegenerateScale))
	_, err = Normalize(seq, Parameters{})
	assert.True(t, errors.Is(err, ErrMissingParameters))
	_, err = Normalize(seq, Parameters{PitchScale: 100, DurationScale: 4})
	assert.True(t, errors.Is(err, ErrDegenerateScale))
}

func TestDenormalize(t *testing.T) {
	p := Parameters{PitchScale: 127, DurationScale: 10}
	tests := []struct {
		name string
		pt   Point
		want music.NoteEvent
	}{
		{"middle", Point{0.5, 0.5}, music.NoteEvent{Pitch: 64, Duration: 5}},
		{"zero duration is raised to one", Point{0, 0}, music.NoteEvent{Pitch: 0, Duration: 1}},
		{"top", Point{1, 1}, music.NoteEvent{Pitch: 127, Duration: 10}},
		{"above range", Point{1.4, 3}, music.NoteEvent{Pitch: 127, Duration: 10}},
		{"below range", Point{-0.2, -1}, music.NoteEvent{Pitch: 0, Duration: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Denormalize(tt.pt, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	_, err := Denormalize(Point{math.NaN(), 0.5}, p)
	assert.True(t, errors.Is(err, ErrNonFinite))
	_, err = Denormalize(Point{0.5, math.Inf(1)}, p)
	assert.True(t, errors.Is(err, ErrNonFinite))
}
