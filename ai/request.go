package ai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
)

var ErrWindowMismatch = errors.New("window length differs from the trained model")

// Request holds the parameters of one generation run
type Request struct {
	Seed music.Sequence `json:"seed"`
	// WindowLength is optional, when set it must match the model
	WindowLength int     `json:"window_length,omitempty"`
	Count        int     `json:"count"`
	Temperature  float64 `json:"temperature"`
	// RandomSeed makes noisy runs reproducible
	RandomSeed *int64 `json:"random_seed,omitempty"`
	// Predictor is "network" (default) or "markov"
	Predictor string `json:"predictor,omitempty"`
}

// Result is the outcome of a Request
type Result struct {
	ID    string         `json:"id"`
	Notes music.Sequence `json:"notes"`
	// Error is set when only part of the notes could be generated
	Error string `json:"error,omitempty"`
}

// Generate runs a request against the trained model. The result
// holds any partially generated notes when err is a StepError or
// a context error.
func (ai *AI) Generate(ctx context.Context, req Request) (res Result, err error) {
	m := ai.Model()
	if m == nil {
		return res, ErrNotLearned
	}
	if req.WindowLength != 0 && req.WindowLength != m.Network.WindowLength {
		return res, errors.Wrapf(ErrWindowMismatch, "requested %d, model has %d", req.WindowLength, m.Network.WindowLength)
	}
	predictor, err := m.Predictor(req.Predictor)
	if err != nil {
		return
	}
	seed := newSeed()
	if req.RandomSeed != nil {
		seed = *req.RandomSeed
	}
	res.ID = RunID(req.Count, m.Network.WindowLength, seed)

	g := &Generator{
		Predictor:    predictor,
		Parameters:   m.Parameters,
		WindowLength: m.Network.WindowLength,
		Sampler:      NewSeededSampler(seed),
	}
	res.Notes, err = g.Generate(ctx, req.Seed, req.Count, req.Temperature)
	if err != nil && res.Notes != nil {
		res.Error = err.Error()
	}
	return
}
