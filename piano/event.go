package piano

import (
	"github.com/rakyll/portmidi"
	"github.com/schollz/neuralpiano/music"
)

const (
	noteOff = 0x80
	noteOn  = 0x90
)

// ToEvent converts a message to a channel 1 portmidi event
func ToEvent(msg music.RawMessage) portmidi.Event {
	if msg.IsStop() {
		return portmidi.Event{Status: noteOff, Data1: int64(msg.Pitch)}
	}
	return portmidi.Event{Status: noteOn, Data1: int64(msg.Pitch), Data2: int64(msg.Velocity)}
}

// FromEvent converts note on and note off events on any channel,
// everything else is ignored
func FromEvent(event portmidi.Event) (music.RawMessage, bool) {
	msg := music.RawMessage{Pitch: int(event.Data1), Velocity: int(event.Data2)}
	switch event.Status & 0xF0 {
	case noteOn:
		msg.Kind = music.NoteStart
	case noteOff:
		msg.Kind = music.NoteStop
	default:
		return msg, false
	}
	return msg, true
}
