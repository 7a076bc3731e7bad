package player

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/ai"
	"github.com/schollz/neuralpiano/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePiano struct {
	played music.Stream
	closed bool
}

func (f *fakePiano) Listen() <-chan music.RawMessage {
	ch := make(chan music.RawMessage)
	close(ch)
	return ch
}

func (f *fakePiano) Play(msgs ...music.RawMessage) error {
	f.played = append(f.played, msgs...)
	return nil
}

func (f *fakePiano) Close() error {
	f.closed = true
	return nil
}

type fakeAI struct {
	seed music.Sequence
	lick music.Sequence
	err  error
}

func (f *fakeAI) Lick(_ context.Context, seed music.Sequence, count int, _ *ai.Sampler) (music.Sequence, error) {
	f.seed = seed
	if len(f.lick) > count {
		return f.lick[:count], f.err
	}
	return f.lick, f.err
}

func TestRecord(t *testing.T) {
	p := New(&fakePiano{}, &fakeAI{})
	p.Tick = 5
	p.Record(music.RawMessage{Kind: music.NoteStart, Pitch: 60, Velocity: 90})
	p.Tick = 15
	p.Record(music.RawMessage{Kind: music.NoteStop, Pitch: 60})
	assert.Equal(t, music.Stream{
		{Kind: music.NoteStart, Pitch: 60, Velocity: 90, Delta: 5},
		{Kind: music.NoteStop, Pitch: 60, Delta: 10},
	}, p.history)
	assert.Equal(t, music.Sequence{{Pitch: 60, Duration: 10}}, music.Extract(p.history))
	assert.Zero(t, p.keysDown)
}

func TestSilence(t *testing.T) {
	p := New(&fakePiano{}, &fakeAI{})
	p.TicksPerBeat = 10
	p.BeatsOfSilence = 2
	p.Tick = 100
	assert.False(t, p.silent(), "nothing recorded yet")

	p.Record(music.Start(60, 0))
	p.Tick = 130
	assert.False(t, p.silent(), "key still down")
	p.Record(music.Stop(60, 0))
	p.Tick = 150
	assert.False(t, p.silent())
	p.Tick = 151
	assert.True(t, p.silent())

	p.IsImprovising = true
	assert.False(t, p.silent())
}

func TestScheduleAndEmit(t *testing.T) {
	f := &fakePiano{}
	p := New(f, &fakeAI{})
	stream := music.Serialize(music.Sequence{{Pitch: 60, Duration: 3}, {Pitch: 62, Duration: 2}}, 0)
	p.Schedule(stream, 10)
	for tick := 10; tick <= 15; tick++ {
		p.Emit(tick)
	}
	assert.Equal(t, stream, f.played)
	assert.Empty(t, p.future)
	assert.Equal(t, 15, p.lastNote)
}

func TestEmitWhileHostPlays(t *testing.T) {
	f := &fakePiano{}
	p := New(f, &fakeAI{})
	p.Record(music.Start(70, 0))
	p.Schedule(music.Stream{music.Start(60, 0), music.Stop(61, 0)}, 1)
	p.Emit(1)
	assert.Equal(t, music.Stream{music.Stop(61, 0)}, f.played)
}

func TestImprovise(t *testing.T) {
	lick := music.Sequence{{Pitch: 60, Duration: 1}, {Pitch: 62, Duration: 1}, {Pitch: 64, Duration: 1}}
	brain := &fakeAI{lick: lick}
	p := New(&fakePiano{}, brain)
	p.LickLength = 2

	played := music.Sequence{{Pitch: 50, Duration: 4}}
	notes, err := p.Improvise(context.Background(), played)
	require.NoError(t, err)
	assert.Equal(t, lick[:2], notes)
	assert.Equal(t, played, brain.seed)

	_, err = p.Improvise(context.Background(), nil)
	assert.Error(t, err)

	stepErr := &ai.StepError{Step: 1, Err: ai.ErrNonFinite}
	brain.err = stepErr
	notes, err = p.Improvise(context.Background(), played)
	assert.True(t, errors.Is(err, ai.ErrNonFinite))
	assert.Len(t, notes, 2)
}

func TestClose(t *testing.T) {
	f := &fakePiano{}
	p := New(f, &fakeAI{})
	p.HistoryFile = filepath.Join(t.TempDir(), "history.json")
	p.Record(music.Start(60, 0))
	p.Tick = 8
	p.Record(music.Stop(60, 0))
	require.NoError(t, p.Close())
	assert.True(t, f.closed)

	saved, err := music.Open(p.HistoryFile)
	require.NoError(t, err)
	assert.Equal(t, music.Sequence{{Pitch: 60, Duration: 8}}, saved)
}
