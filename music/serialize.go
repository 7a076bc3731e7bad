package music

// Serializer turns notes back into a stream. The clock keeps
// running between calls to Append, so sequences appended one
// after another are played back to back.
type Serializer struct {
	clock int // absolute tick where the next note starts
	last  int // absolute tick of the last emitted message
}

// NewSerializer starts the clock at offset ticks
func NewSerializer(offset int) *Serializer {
	if offset < 0 {
		offset = 0
	}
	return &Serializer{clock: offset}
}

// Append emits a start and a stop message for every note
func (s *Serializer) Append(notes Sequence) Stream {
	stream := make(Stream, 0, 2*len(notes))
	for _, n := range notes {
		pitch := n.Pitch
		if pitch < 0 {
			pitch = 0
		} else if pitch > MaxPitch {
			pitch = MaxPitch
		}
		duration := n.Duration
		if duration < 0 {
			duration = 0
		}
		stream = append(stream, Start(pitch, s.clock-s.last), Stop(pitch, duration))
		s.clock += duration
		s.last = s.clock
	}
	return stream
}

// Clock returns the tick where the next appended note will start
func (s *Serializer) Clock() int {
	return s.clock
}

// Serialize converts one sequence starting at offset
func Serialize(notes Sequence, offset int) Stream {
	return NewSerializer(offset).Append(notes)
}

// SerializeAll converts several sequences into a single
// contiguous stream
func SerializeAll(offset int, parts ...Sequence) Stream {
	s := NewSerializer(offset)
	stream := Stream{}
	for _, part := range parts {
		stream = append(stream, s.Append(part)...)
	}
	return stream
}
