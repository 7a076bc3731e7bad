package ai

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
	log "github.com/sirupsen/logrus"
)

// anyPitch is the row of the matrix that counts every note,
// used when the previous pitch was never seen
const anyPitch = -1

// Markov predicts the next note from how often each pitch followed
// the previous one in the corpus. It only looks at the last note
// of a window. The duration is the average of the notes that made
// the same transition.
type Markov struct {
	Parameters Parameters `json:"parameters"`
	// Matrix maps previous pitch -> next pitch -> count
	Matrix map[int]map[int]int `json:"matrix"`
	// Durations sums the durations of every transition
	Durations map[int]map[int]int `json:"durations"`
}

// NewMarkov counts the pitch transitions of the corpus
func NewMarkov(corpus []music.Sequence, p Parameters) (*Markov, error) {
	logger := log.WithFields(log.Fields{
		"function": "NewMarkov",
	})
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &Markov{
		Parameters: p,
		Matrix:     make(map[int]map[int]int),
		Durations:  make(map[int]map[int]int),
	}
	transitions := 0
	for _, seq := range corpus {
		for i, note := range seq {
			m.addToMatrix(anyPitch, note)
			if i > 0 {
				m.addToMatrix(seq[i-1].Pitch, note)
				transitions++
			}
		}
	}
	if len(m.Matrix) == 0 {
		return nil, ErrEmptyCorpus
	}
	logger.Debugf("Counted %d transitions between %d pitches", transitions, len(m.Matrix)-1)
	return m, nil
}

func (m *Markov) addToMatrix(a int, note music.NoteEvent) {
	if _, ok := m.Matrix[a]; !ok {
		m.Matrix[a] = make(map[int]int)
		m.Durations[a] = make(map[int]int)
	}
	m.Matrix[a][note.Pitch]++
	m.Durations[a][note.Pitch] += note.Duration
}

// Predict implements Predictor with the most likely next note
func (m *Markov) Predict(window []Point) (Point, error) {
	if len(window) == 0 {
		return Point{}, errors.Wrap(ErrWindowShape, "empty window")
	}
	last := window[len(window)-1]
	a := clampInt(int(math.Round(last.Pitch*float64(m.Parameters.PitchScale))), 0, music.MaxPitch)
	if len(m.Matrix[a]) == 0 {
		a = anyPitch
	}
	ranked := rankByProb(m.Matrix[a])
	if len(ranked) == 0 {
		return Point{}, ErrNotLearned
	}
	c := ranked[0]
	duration := float64(m.Durations[a][c.Key]) / float64(c.Value)
	return Point{
		Pitch:    float64(c.Key) / float64(m.Parameters.PitchScale),
		Duration: duration / float64(m.Parameters.DurationScale),
	}, nil
}

func rankByProb(stateFrequencies map[int]int) PairList {
	pl := make(PairList, 0, len(stateFrequencies))
	for k, v := range stateFrequencies {
		pl = append(pl, Pair{k, v})
	}
	sort.Sort(pl)
	return pl
}

type Pair struct {
	Key   int
	Value int
}

// PairList sorts by descending count, then ascending key
type PairList []Pair

func (p PairList) Len() int { return len(p) }
func (p PairList) Less(i, j int) bool {
	if p[i].Value != p[j].Value {
		return p[i].Value > p[j].Value
	}
	return p[i].Key < p[j].Key
}
func (p PairList) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
