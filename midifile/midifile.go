// Package midifile reads and writes standard MIDI files as note
// streams.
package midifile

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/music"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Options control how a stream is written
type Options struct {
	// Resolution in ticks per quarter note
	Resolution int
	BPM        float64
	Program    uint8
	Channel    uint8
}

// DefaultOptions write program 12 at 120 BPM
var DefaultOptions = Options{
	Resolution: 480,
	BPM:        120,
	Program:    12,
}

type timed struct {
	tick  int64
	track int
	msg   music.RawMessage
}

// Read merges the notes of every track and channel of a MIDI file
// into one stream. Deltas are in ticks.
func Read(r io.Reader) (music.Stream, error) {
	logger := log.WithFields(log.Fields{
		"function": "midifile.Read",
	})
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading midi")
	}

	events := []timed{}
	for trackNum, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				events = append(events, timed{tick, trackNum, music.RawMessage{
					Kind: music.NoteStart, Pitch: int(key), Velocity: int(vel),
				}})
			case ev.Message.GetNoteEnd(&ch, &key):
				events = append(events, timed{tick, trackNum, music.RawMessage{
					Kind: music.NoteStop, Pitch: int(key),
				}})
			}
		}
	}
	// tracks run in parallel, interleave them by time
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].tick < events[j].tick
	})

	stream := make(music.Stream, len(events))
	var last int64
	for i, ev := range events {
		ev.msg.Delta = int(ev.tick - last)
		last = ev.tick
		stream[i] = ev.msg
	}
	logger.Debugf("Read %d note messages from %d tracks", len(stream), len(s.Tracks))
	return stream, nil
}

// ReadFile reads a MIDI file from disk
func ReadFile(filename string) (music.Stream, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening midi")
	}
	defer f.Close()
	stream, err := Read(f)
	return stream, errors.Wrapf(err, "%s", filename)
}

// Write encodes a stream as a single track MIDI file. A note that
// would stop on the tick it started is held for one tick, delaying
// everything after it.
func Write(w io.Writer, stream music.Stream, opts Options) error {
	if opts.Resolution <= 0 {
		opts.Resolution = DefaultOptions.Resolution
	}
	if opts.BPM <= 0 {
		opts.BPM = DefaultOptions.BPM
	}

	var track smf.Track
	track.Add(0, smf.MetaTempo(opts.BPM))
	track.Add(0, midi.ProgramChange(opts.Channel, opts.Program))
	// pitches started on the current tick, a note written to the
	// file lasts at least one tick
	started := make(map[int]bool)
	for i, msg := range stream {
		if msg.Pitch < 0 || msg.Pitch > music.MaxPitch {
			return errors.Wrapf(music.ErrPitchRange, "message %d: pitch %d", i, msg.Pitch)
		}
		delta := msg.Delta
		if delta < 0 {
			delta = 0
		}
		if delta > 0 {
			clear(started)
		}
		if msg.IsStop() {
			if started[msg.Pitch] {
				delta = 1
				clear(started)
			}
			track.Add(uint32(delta), midi.NoteOff(opts.Channel, uint8(msg.Pitch)))
		} else {
			started[msg.Pitch] = true
			track.Add(uint32(delta), midi.NoteOn(opts.Channel, uint8(msg.Pitch), uint8(clampVelocity(msg.Velocity))))
		}
	}
	track.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.Resolution)
	if err := s.Add(track); err != nil {
		return errors.Wrap(err, "adding track")
	}
	_, err := s.WriteTo(w)
	return errors.Wrap(err, "writing midi")
}

// WriteFile writes a stream to a MIDI file on disk
func WriteFile(filename string, stream music.Stream, opts Options) (err error) {
	logger := log.WithFields(log.Fields{
		"function": "midifile.WriteFile",
	})
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "creating midi")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err = Write(f, stream, opts); err != nil {
		return
	}
	logger.Infof("Wrote %d messages to %s", len(stream), filename)
	return
}

func clampVelocity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}
