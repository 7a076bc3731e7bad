package music

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxPitch is the highest MIDI pitch
	MaxPitch = 127
	// DefaultVelocity is used for every note that gets written out
	DefaultVelocity = 64
)

var (
	ErrPitchRange    = errors.New("pitch out of range")
	ErrDuration      = errors.New("negative duration")
	ErrUnmatchedStop = errors.New("note stop without matching start")
)

// Kind tells whether a message starts or stops a note
type Kind int

const (
	NoteStop Kind = iota
	NoteStart
)

func (k Kind) String() string {
	if k == NoteStart {
		return "note-start"
	}
	return "note-stop"
}

// RawMessage is one entry of a timed note stream. Delta is the
// number of ticks since the previous message.
type RawMessage struct {
	Kind     Kind `json:"kind"`
	Pitch    int  `json:"pitch"`
	Velocity int  `json:"velocity"`
	Delta    int  `json:"delta"`
}

// IsStop reports whether the message closes a note. A start
// with zero velocity is a stop.
func (m RawMessage) IsStop() bool {
	return m.Kind == NoteStop || m.Velocity == 0
}

func (m RawMessage) String() string {
	return fmt.Sprintf("%s(%d,v=%d,+%d)", m.Kind, m.Pitch, m.Velocity, m.Delta)
}

// Stream is an ordered list of messages
type Stream []RawMessage

// Start returns a note-start message
func Start(pitch, delta int) RawMessage {
	return RawMessage{Kind: NoteStart, Pitch: pitch, Velocity: DefaultVelocity, Delta: delta}
}

// Stop returns a note-stop message
func Stop(pitch, delta int) RawMessage {
	return RawMessage{Kind: NoteStop, Pitch: pitch, Delta: delta}
}

// NoteEvent carries the pitch and duration (in ticks) of a
// single sounded note
type NoteEvent struct {
	Pitch    int `json:"pitch"`
	Duration int `json:"duration"`
}

// NewNoteEvent validates the ranges of a note
func NewNoteEvent(pitch, duration int) (NoteEvent, error) {
	if pitch < 0 || pitch > MaxPitch {
		return NoteEvent{}, errors.Wrapf(ErrPitchRange, "pitch %d", pitch)
	}
	if duration < 0 {
		return NoteEvent{}, errors.Wrapf(ErrDuration, "duration %d", duration)
	}
	return NoteEvent{Pitch: pitch, Duration: duration}, nil
}

func (n NoteEvent) String() string {
	return fmt.Sprintf("(%d,%d)", n.Pitch, n.Duration)
}

// Sequence is a list of notes in performance order
type Sequence []NoteEvent

// Last returns a copy of the last n notes
func (s Sequence) Last(n int) Sequence {
	if n > len(s) {
		n = len(s)
	}
	last := make(Sequence, n)
	copy(last, s[len(s)-n:])
	return last
}

// Length is the sum of all durations
func (s Sequence) Length() (ticks int) {
	for _, n := range s {
		ticks += n.Duration
	}
	return
}

// Open loads a sequence that was saved as JSON
func Open(filename string) (Sequence, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "reading sequence")
	}
	var s Sequence
	if err = json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", filename)
	}
	for i, n := range s {
		if _, err = NewNoteEvent(n.Pitch, n.Duration); err != nil {
			return nil, errors.Wrapf(err, "note %d of %s", i, filename)
		}
	}
	return s, nil
}

// Save writes the sequence as JSON
func (s Sequence) Save(filename string) (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Sequence.Save",
	})
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	logger.Debugf("Saving %d notes to %s", len(s), filename)
	return os.WriteFile(filename, b, 0644)
}
