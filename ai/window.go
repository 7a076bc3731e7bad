package ai

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrWindowLength     = errors.New("window length must be at least 1")
	ErrInsufficientData = errors.New("not enough notes for a single window")
)

// Window is a run of consecutive points together with the point
// that follows it
type Window struct {
	Start  int
	Inputs []Point
	Target Point
}

// Windows slices points into every window of the given length.
// A sequence of N points yields N-length windows; fewer than
// length+1 points is an error.
func Windows(points []Point, length int) ([]Window, error) {
	if length < 1 {
		return nil, errors.Wrapf(ErrWindowLength, "got %d", length)
	}
	if len(points) < length+1 {
		return nil, errors.Wrapf(ErrInsufficientData, "%d notes, window length %d", len(points), length)
	}
	windows := make([]Window, len(points)-length)
	for i := range windows {
		windows[i] = Window{
			Start:  i,
			Inputs: points[i : i+length],
			Target: points[i+length],
		}
	}
	return windows, nil
}

// CorpusWindows windows every performance on its own so that no
// window spans two performances. Short performances are skipped
// with a warning; it is only an error if nothing is left.
func CorpusWindows(corpus [][]Point, length int) ([]Window, error) {
	logger := log.WithFields(log.Fields{
		"function": "CorpusWindows",
	})
	if length < 1 {
		return nil, errors.Wrapf(ErrWindowLength, "got %d", length)
	}
	all := []Window{}
	for i, points := range corpus {
		windows, err := Windows(points, length)
		if errors.Is(err, ErrInsufficientData) {
			logger.Warnf("Skipping performance %d: %s", i, err)
			continue
		} else if err != nil {
			return nil, err
		}
		all = append(all, windows...)
	}
	if len(all) == 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "%d performances, window length %d", len(corpus), length)
	}
	logger.Debugf("Made %d windows from %d performances", len(all), len(corpus))
	return all, nil
}
