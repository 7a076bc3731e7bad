package music

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Extract converts a stream of start/stop messages into closed
// notes. Only one note per pitch can be open: a second start on an
// open pitch restarts it. Stops that match no open note are dropped,
// as are notes still open at the end of the stream.
func Extract(stream Stream) Sequence {
	notes, discarded, _ := extract(stream, false)
	if discarded > 0 {
		log.WithFields(log.Fields{
			"function": "Extract",
		}).Debugf("Discarded %d malformed messages", discarded)
	}
	return notes
}

// ExtractStrict is like Extract but fails on the first unmatched
// stop or out-of-range pitch.
func ExtractStrict(stream Stream) (Sequence, error) {
	notes, _, err := extract(stream, true)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func extract(stream Stream, strict bool) (notes Sequence, discarded int, err error) {
	notes = Sequence{}
	active := make(map[int]int)
	now := 0
	for i, msg := range stream {
		if msg.Delta > 0 {
			now += msg.Delta
		}
		if msg.Pitch < 0 || msg.Pitch > MaxPitch {
			if strict {
				return nil, discarded, errors.Wrapf(ErrPitchRange, "message %d: pitch %d", i, msg.Pitch)
			}
			discarded++
			continue
		}
		if !msg.IsStop() {
			active[msg.Pitch] = now
			continue
		}
		start, ok := active[msg.Pitch]
		if !ok {
			if strict {
				return nil, discarded, errors.Wrapf(ErrUnmatchedStop, "message %d: pitch %d", i, msg.Pitch)
			}
			discarded++
			continue
		}
		notes = append(notes, NoteEvent{Pitch: msg.Pitch, Duration: now - start})
		delete(active, msg.Pitch)
	}
	return
}
