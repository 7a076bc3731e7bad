package player

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/ai"
	"github.com/schollz/neuralpiano/music"
	"github.com/schollz/neuralpiano/piano"
	log "github.com/sirupsen/logrus"
)

// Instrument is what the player listens to and plays on
type Instrument interface {
	Listen() <-chan music.RawMessage
	Play(msgs ...music.RawMessage) error
	Close() error
}

// Improviser continues a performance
type Improviser interface {
	Lick(ctx context.Context, seed music.Sequence, count int, sampler *ai.Sampler) (music.Sequence, error)
}

// Player is the main structure which facilitates the Piano, and the AI.
// The Player spawns threads for listening to events on the Piano, and also
// spawns threads for playing notes on the piano. It also spawns threads
// for asking the AI to continue what was played.
type Player struct {
	// BPM is the beats per minute
	BPM int
	// TicksPerBeat must match the resolution the AI learned with
	TicksPerBeat int
	// Tick counts the ticks since the start
	Tick int

	// BeatsOfSilence waits this number of beats before asking
	// the AI for an improvisation
	BeatsOfSilence int
	// LickLength is the number of notes the AI plays at a time
	LickLength int
	// HistoryFile keeps the notes that the host played
	HistoryFile string

	Piano Instrument
	AI    Improviser

	// history holds what the host played, deltas in ticks
	history     music.Stream
	lastMessage int
	// lastNote is the tick of the last note played by anyone
	lastNote int
	keysDown int
	// future holds the messages to emit, keyed by tick
	future        map[int]music.Stream
	IsImprovising bool

	events chan func()
}

// New connects a player to an instrument and an improviser
func New(instrument Instrument, improviser Improviser) *Player {
	return &Player{
		BPM:            120,
		TicksPerBeat:   480,
		BeatsOfSilence: 2,
		LickLength:     32,
		HistoryFile:    "music_history.json",
		Piano:          instrument,
		AI:             improviser,
		history:        music.Stream{},
		future:         make(map[int]music.Stream),
		events:         make(chan func()),
	}
}

// Close saves the history and shuts down the instrument
func (p *Player) Close() (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.Close",
	})
	if p.HistoryFile != "" {
		notes := music.Extract(p.history)
		if err = notes.Save(p.HistoryFile); err != nil {
			logger.Error(err.Error())
		} else {
			logger.Infof("Saved %d notes to %s", len(notes), p.HistoryFile)
		}
	}
	logger.Debug("Closing piano...")
	if cerr := p.Piano.Close(); cerr != nil {
		logger.Error(cerr.Error())
		if err == nil {
			err = cerr
		}
	}
	return
}

// Start runs the metronome until ctx is done. Every tick emits the
// notes that are due and, after enough silence, asks the AI for an
// improvisation. All state changes happen on this goroutine.
func (p *Player) Start(ctx context.Context) error {
	logger := log.WithFields(log.Fields{
		"function": "Player.Start",
	})
	go p.Listen(ctx)

	tickTime := piano.TickDuration(p.BPM, p.TicksPerBeat)
	ticker := time.NewTicker(tickTime)
	defer ticker.Stop()
	logger.Infof("BPM:  %d, tick size: %s (%d ticks / beat)", p.BPM, tickTime.String(), p.TicksPerBeat)
	for {
		select {
		case <-ticker.C:
			p.Tick++
			p.Emit(p.Tick)
			if p.silent() {
				logger.Info("Silence exceeded, trying to improvise")
				p.lastNote = p.Tick
				p.IsImprovising = true
				go p.improvise(ctx, music.Extract(p.history))
			}
		case fn := <-p.events:
			fn()
		case <-ctx.Done():
			logger.Debug("Done")
			return p.Close()
		}
	}
}

// Listen records what is played on the piano. This is meant to be
// run in a separate thread.
func (p *Player) Listen(ctx context.Context) {
	for msg := range p.Piano.Listen() {
		msg := msg
		select {
		case p.events <- func() { p.Record(msg) }:
		case <-ctx.Done():
			return
		}
	}
}

// Record adds a message played by the host at the current tick
func (p *Player) Record(msg music.RawMessage) {
	msg.Delta = p.Tick - p.lastMessage
	p.lastMessage = p.Tick
	p.lastNote = p.Tick
	if msg.IsStop() {
		if p.keysDown > 0 {
			p.keysDown--
		}
	} else {
		p.keysDown++
	}
	p.history = append(p.history, msg)
}

func (p *Player) silent() bool {
	return !p.IsImprovising &&
		p.keysDown == 0 &&
		len(p.history) > 0 &&
		len(p.future) == 0 &&
		p.Tick-p.lastNote > p.TicksPerBeat*p.BeatsOfSilence
}

func (p *Player) improvise(ctx context.Context, played music.Sequence) {
	lick, err := p.Improvise(ctx, played)
	select {
	case p.events <- func() {
		p.IsImprovising = false
		if err == nil || len(lick) > 0 {
			p.Schedule(music.Serialize(lick, 0), p.Tick+1)
		}
	}:
	case <-ctx.Done():
	}
}

// Improvise asks the AI to continue what was played. If the AI
// fails part way, the notes it managed are still returned.
func (p *Player) Improvise(ctx context.Context, played music.Sequence) (music.Sequence, error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.Improvise",
	})
	if len(played) == 0 {
		return nil, errors.New("nothing was played")
	}
	lick, err := p.AI.Lick(ctx, played, p.LickLength, nil)
	if err != nil {
		logger.Warn(err.Error())
	}
	logger.Infof("Got %d notes from AI", len(lick))
	return lick, err
}

// Schedule puts a stream into the future, its first delta counted
// from the given tick
func (p *Player) Schedule(stream music.Stream, start int) {
	tick := start
	for _, msg := range stream {
		tick += msg.Delta
		p.future[tick] = append(p.future[tick], msg)
	}
}

// Emit plays the notes due at tick
func (p *Player) Emit(tick int) {
	msgs, ok := p.future[tick]
	if !ok {
		return
	}
	delete(p.future, tick)
	p.lastNote = tick
	if p.keysDown > 0 {
		// the host is playing, stay quiet but let notes end
		stops := music.Stream{}
		for _, msg := range msgs {
			if msg.IsStop() {
				stops = append(stops, msg)
			}
		}
		msgs = stops
	}
	if err := p.Piano.Play(msgs...); err != nil {
		log.WithFields(log.Fields{
			"function": "Player.Emit",
		}).Error(err.Error())
	}
}
