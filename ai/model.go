package ai

import (
	"github.com/pkg/errors"
	"github.com/schollz/jsonstore"
	log "github.com/sirupsen/logrus"
)

const (
	keyParameters = "parameters"
	keyNetwork    = "network"
	keyMarkov     = "markov"
)

// Predictor names
const (
	PredictorNetwork = "network"
	PredictorMarkov  = "markov"
)

var ErrUnknownPredictor = errors.New("unknown predictor")

// Model is a trained network bundled with the scales it was
// trained with. The Markov chain is optional.
type Model struct {
	Parameters Parameters
	Network    *Network
	Markov     *Markov
}

// Predictor returns the predictor called name, the network when
// name is empty
func (m *Model) Predictor(name string) (Predictor, error) {
	switch name {
	case "", PredictorNetwork:
		return m.Network, nil
	case PredictorMarkov:
		if m.Markov == nil {
			return nil, errors.Wrap(ErrNoPredictor, "model has no markov chain")
		}
		return m.Markov, nil
	default:
		return nil, errors.Wrapf(ErrUnknownPredictor, "%q", name)
	}
}

// SaveModel writes the model to filename. Filenames ending in .gz
// are compressed.
func SaveModel(m *Model, filename string) (err error) {
	logger := log.WithFields(log.Fields{
		"function": "SaveModel",
	})
	if err = m.Parameters.Validate(); err != nil {
		return
	}
	if m.Network == nil {
		return ErrNoPredictor
	}
	ks := new(jsonstore.JSONStore)
	if err = ks.Set(keyParameters, m.Parameters); err != nil {
		return errors.Wrap(err, "storing parameters")
	}
	if err = ks.Set(keyNetwork, m.Network); err != nil {
		return errors.Wrap(err, "storing network")
	}
	if m.Markov != nil {
		if err = ks.Set(keyMarkov, m.Markov); err != nil {
			return errors.Wrap(err, "storing markov chain")
		}
	}
	logger.Debugf("Saving model (window %d) to %s", m.Network.WindowLength, filename)
	return errors.Wrapf(jsonstore.Save(ks, filename), "saving %s", filename)
}

// OpenModel loads a model. A model without parameters cannot be
// used for generation and is rejected.
func OpenModel(filename string) (*Model, error) {
	ks, err := jsonstore.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	m := &Model{}
	if err = ks.Get(keyParameters, &m.Parameters); err != nil {
		return nil, errors.Wrapf(ErrMissingParameters, "%s: %s", filename, err)
	}
	if err = m.Parameters.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}
	m.Network = &Network{}
	if err = ks.Get(keyNetwork, m.Network); err != nil {
		return nil, errors.Wrapf(err, "%s: reading network", filename)
	}
	if m.Network.FF == nil || m.Network.WindowLength < 1 {
		return nil, errors.Wrapf(ErrNoPredictor, "%s", filename)
	}
	markov := &Markov{}
	if err = ks.Get(keyMarkov, markov); err == nil && len(markov.Matrix) > 0 {
		m.Markov = markov
	}
	return m, nil
}
