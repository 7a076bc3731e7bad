package ai

import (
	"github.com/pkg/errors"
	"github.com/schollz/gobrain"
	log "github.com/sirupsen/logrus"
)

var ErrWindowShape = errors.New("window does not match network inputs")

// Network is a feed-forward net that reads a flattened window of
// (pitch, duration) points and outputs the next point.
type Network struct {
	WindowLength int                  `json:"window_length"`
	Hidden       int                  `json:"hidden"`
	FF           *gobrain.FeedForward `json:"ff"`
}

// NewNetwork initializes the weights of a network with 2*window
// inputs, hidden nodes and two outputs
func NewNetwork(window, hidden int) *Network {
	n := &Network{
		WindowLength: window,
		Hidden:       hidden,
		FF:           &gobrain.FeedForward{},
	}
	n.FF.Init(2*window, hidden, 2)
	return n
}

// Train runs back-propagation over the windows and returns the
// error of every epoch
func (n *Network) Train(windows []Window, epochs int, rate, momentum float64, debug bool) ([]float64, error) {
	logger := log.WithFields(log.Fields{
		"function": "Network.Train",
	})
	patterns := make([][][]float64, len(windows))
	for i, w := range windows {
		if len(w.Inputs) != n.WindowLength {
			return nil, errors.Wrapf(ErrWindowShape, "window %d has %d notes, want %d", i, len(w.Inputs), n.WindowLength)
		}
		patterns[i] = [][]float64{flatten(w.Inputs), {w.Target.Pitch, clamp01(w.Target.Duration)}}
	}
	logger.Debugf("Training on %d windows for %d epochs", len(patterns), epochs)
	errs := n.FF.Train(patterns, epochs, rate, momentum, debug)
	if len(errs) > 0 {
		logger.Infof("Final training error %2.5f", errs[len(errs)-1])
	}
	return errs, nil
}

// Predict implements Predictor
func (n *Network) Predict(window []Point) (Point, error) {
	if len(window) != n.WindowLength {
		return Point{}, errors.Wrapf(ErrWindowShape, "got %d notes, want %d", len(window), n.WindowLength)
	}
	out := n.FF.Update(flatten(window))
	if len(out) < 2 {
		return Point{}, errors.Wrapf(ErrWindowShape, "network has %d outputs", len(out))
	}
	return Point{Pitch: out[0], Duration: out[1]}, nil
}

func flatten(points []Point) []float64 {
	f := make([]float64, 0, 2*len(points))
	for _, p := range points {
		f = append(f, p.Pitch, p.Duration)
	}
	return f
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
