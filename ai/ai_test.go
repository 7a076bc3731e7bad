package ai

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/schollz/jsonstore"
	"github.com/schollz/neuralpiano/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scale plays a C major scale up and down a few times
func scale(repeats int) music.Sequence {
	steps := []int{60, 62, 64, 65, 67, 69, 71, 72, 71, 69, 67, 65, 64, 62}
	s := music.Sequence{}
	for i := 0; i < repeats; i++ {
		for j, p := range steps {
			s = append(s, music.NoteEvent{Pitch: p, Duration: 120 + 120*(j%2)})
		}
	}
	return s
}

func smallAI() *AI {
	a := New()
	a.WindowLength = 4
	a.HiddenNodes = 6
	a.Epochs = 5
	return a
}

func TestNetworkPredict(t *testing.T) {
	n := NewNetwork(3, 4)
	pt, err := n.Predict(points(3))
	require.NoError(t, err)
	assert.True(t, pt.Pitch >= 0 && pt.Pitch <= 1)
	assert.True(t, pt.Duration >= 0 && pt.Duration <= 1)

	_, err = n.Predict(points(2))
	assert.True(t, errors.Is(err, ErrWindowShape))
}

func TestNetworkTrain(t *testing.T) {
	n := NewNetwork(3, 4)
	windows, err := Windows(points(10), 3)
	require.NoError(t, err)
	errs, err := n.Train(windows, 7, 0.1, 0.3, false)
	require.NoError(t, err)
	assert.Len(t, errs, 7)

	_, err = n.Train([]Window{{Inputs: points(2)}}, 1, 0.1, 0.3, false)
	assert.True(t, errors.Is(err, ErrWindowShape))
}

func TestLearnAndLick(t *testing.T) {
	a := smallAI()
	_, err := a.Lick(context.Background(), scale(1), 5, nil)
	assert.True(t, errors.Is(err, ErrNotLearned))

	require.NoError(t, a.Learn([]music.Sequence{scale(3), scale(2)}))
	assert.True(t, a.HasLearned)
	assert.False(t, a.IsLearning)
	m := a.Model()
	require.NotNil(t, m)
	assert.Equal(t, 240, m.Parameters.DurationScale)

	a.Temperature = 0.05
	lick, err := a.Lick(context.Background(), scale(1), 12, NewSeededSampler(5))
	require.NoError(t, err)
	require.Len(t, lick, 12)
	for _, n := range lick {
		assert.True(t, n.Pitch >= 0 && n.Pitch <= 127)
		assert.True(t, n.Duration >= 1 && n.Duration <= 240)
	}
}

func TestLearnErrors(t *testing.T) {
	a := smallAI()
	assert.True(t, errors.Is(a.Learn(nil), ErrEmptyCorpus))
	assert.True(t, errors.Is(a.Learn([]music.Sequence{scale(1)[:4]}), ErrInsufficientData))
	assert.True(t, errors.Is(a.Learn([]music.Sequence{{{Pitch: 60}, {Pitch: 61}}}), ErrDegenerateScale))
	assert.False(t, a.HasLearned)
	assert.Nil(t, a.Model())
}

func TestModelSaveOpen(t *testing.T) {
	a := smallAI()
	require.NoError(t, a.Learn([]music.Sequence{scale(2)}))
	fname := filepath.Join(t.TempDir(), "model.json.gz")
	require.NoError(t, a.Save(fname))

	b, err := Open(fname)
	require.NoError(t, err)
	assert.Equal(t, a.Model().Parameters, b.Model().Parameters)
	assert.Equal(t, 4, b.WindowLength)

	want, err := a.Model().Network.Predict(points(4))
	require.NoError(t, err)
	got, err := b.Model().Network.Predict(points(4))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, a.Model().Markov, b.Model().Markov)
}

func TestOpenModelWithoutParameters(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "model.json")
	ks := new(jsonstore.JSONStore)
	require.NoError(t, ks.Set(keyNetwork, NewNetwork(2, 2)))
	require.NoError(t, jsonstore.Save(ks, fname))

	_, err := OpenModel(fname)
	assert.True(t, errors.Is(err, ErrMissingParameters))

	assert.True(t, errors.Is(New().Save(fname), ErrNotLearned))
}

func TestGenerateRequest(t *testing.T) {
	a := smallAI()
	require.NoError(t, a.Learn([]music.Sequence{scale(2)}))

	seed := int64(11)
	req := Request{Seed: scale(1), Count: 6, Temperature: 0.3, RandomSeed: &seed}
	first, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first.Notes, 6)
	assert.Equal(t, RunID(6, 4, 11), first.ID)

	req.Predictor = PredictorMarkov
	markov, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, markov.Notes, 6)

	req.Predictor = "lstm"
	_, err = a.Generate(context.Background(), req)
	assert.True(t, errors.Is(err, ErrUnknownPredictor))

	req.Predictor = ""
	req.WindowLength = 7
	_, err = a.Generate(context.Background(), req)
	assert.True(t, errors.Is(err, ErrWindowMismatch))

	_, err = New().Generate(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNotLearned))
}

func TestRunID(t *testing.T) {
	id := RunID(10, 50, 1234)
	assert.GreaterOrEqual(t, len(id), 8)
	assert.Equal(t, id, RunID(10, 50, 1234))
	assert.NotEqual(t, id, RunID(11, 50, 1234))
}
