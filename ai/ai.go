package ai

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
	log "github.com/sirupsen/logrus"
)

var (
	ErrLearning    = errors.New("already learning")
	ErrNotLearned  = errors.New("learning must be finished")
	ErrEmptyCorpus = errors.New("no performances to learn from")
)

// AI learns from performances and improvises licks that continue
// a seed performance
type AI struct {
	// WindowLength is how many previous notes are used to
	// predict the next one
	WindowLength int

	// HiddenNodes is the size of the hidden layer
	HiddenNodes int

	// Epochs, LearningRate and Momentum control training
	Epochs       int
	LearningRate float64
	Momentum     float64

	// Temperature is the standard deviation of the noise added
	// to every prediction
	Temperature float64

	// Predictor picks the model used to improvise,
	// PredictorNetwork or PredictorMarkov
	Predictor string

	// keep track of whether it is learning,
	// so learning can be done asynchronously
	IsLearning bool
	HasLearned bool

	model *Model
	sync.Mutex
}

// New returns an AI with the default settings
func New() (ai *AI) {
	ai = new(AI)
	ai.WindowLength = 50
	ai.HiddenNodes = 64
	ai.Epochs = 20
	ai.LearningRate = 0.1
	ai.Momentum = 0.3
	ai.Temperature = 0
	ai.Predictor = PredictorNetwork
	return ai
}

// FromModel returns an AI that has already learned
func FromModel(m *Model) *AI {
	ai := New()
	ai.WindowLength = m.Network.WindowLength
	ai.HiddenNodes = m.Network.Hidden
	ai.model = m
	ai.HasLearned = true
	return ai
}

// Model returns the trained model, nil before learning
func (ai *AI) Model() *Model {
	ai.Lock()
	defer ai.Unlock()
	return ai.model
}

func (ai *AI) toggleLearning(l bool) {
	ai.Lock()
	ai.IsLearning = l
	ai.Unlock()
}

// Learn computes the scales of the corpus and trains a new network
// on every window of it. Configuration problems are reported
// before any training is done.
func (ai *AI) Learn(corpus []music.Sequence) (err error) {
	logger := log.WithFields(log.Fields{
		"function": "AI.Learn",
	})
	ai.Lock()
	if ai.IsLearning {
		ai.Unlock()
		return ErrLearning
	}
	ai.IsLearning = true
	ai.Unlock()
	defer ai.toggleLearning(false)

	if len(corpus) == 0 {
		return ErrEmptyCorpus
	}
	logger.Info("Computing scales")
	params, err := ComputeScale(corpus)
	if err != nil {
		return
	}
	normalized := make([][]Point, len(corpus))
	for i, seq := range corpus {
		if normalized[i], err = Normalize(seq, params); err != nil {
			return
		}
	}
	windows, err := CorpusWindows(normalized, ai.WindowLength)
	if err != nil {
		return
	}

	logger.Infof("Training on %d windows (duration scale %d)", len(windows), params.DurationScale)
	net := NewNetwork(ai.WindowLength, ai.HiddenNodes)
	if _, err = net.Train(windows, ai.Epochs, ai.LearningRate, ai.Momentum, log.IsLevelEnabled(log.DebugLevel)); err != nil {
		return
	}

	markov, err := NewMarkov(corpus, params)
	if err != nil {
		return
	}

	ai.Lock()
	ai.model = &Model{Parameters: params, Network: net, Markov: markov}
	ai.HasLearned = true
	ai.Unlock()
	logger.Info("Finished training")
	return
}

// Lick continues seed with count notes. The last WindowLength notes
// of seed start the generation. A nil sampler uses a time seed.
func (ai *AI) Lick(ctx context.Context, seed music.Sequence, count int, sampler *Sampler) (lick music.Sequence, err error) {
	logger := log.WithFields(log.Fields{
		"function": "AI.Lick",
	})
	ai.Lock()
	if !ai.HasLearned || ai.IsLearning {
		ai.Unlock()
		return nil, ErrNotLearned
	}
	model := ai.model
	temperature := ai.Temperature
	name := ai.Predictor
	ai.Unlock()

	predictor, err := model.Predictor(name)
	if err != nil {
		return
	}
	g := &Generator{
		Predictor:    predictor,
		Parameters:   model.Parameters,
		WindowLength: model.Network.WindowLength,
		Sampler:      sampler,
	}
	logger.Debugf("Improvising %d notes at temperature %2.2f", count, temperature)
	return g.Generate(ctx, seed.Last(g.WindowLength), count, temperature)
}

// Save writes the trained model
func (ai *AI) Save(filename string) error {
	m := ai.Model()
	if m == nil {
		return ErrNotLearned
	}
	return SaveModel(m, filename)
}

// Open loads a trained model
func Open(filename string) (*AI, error) {
	m, err := OpenModel(filename)
	if err != nil {
		return nil, err
	}
	return FromModel(m), nil
}
