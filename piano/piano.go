package piano

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rakyll/portmidi"
	"github.com/schollz/neuralpiano/music"
	log "github.com/sirupsen/logrus"
)

// Piano is the MIDI keyboard that is listened to and played on
type Piano struct {
	InputDevice  portmidi.DeviceID
	OutputDevice portmidi.DeviceID
	outputStream *portmidi.Stream
	inputStream  *portmidi.Stream
	sync.Mutex
}

// New sets the device ports. Optionally you can
// pass the input and output ports, respectively.
func New(ports ...int) (p *Piano, err error) {
	p = new(Piano)
	logger := log.WithFields(log.Fields{
		"function": "Piano.New",
	})
	logger.Debug("Initializing portmidi...")
	if err = portmidi.Initialize(); err != nil {
		return nil, errors.Wrap(err, "initializing portmidi")
	}
	numDevices := portmidi.CountDevices()
	logger.Debugf("Found %d devices", numDevices)
	for i := 0; i < numDevices; i++ {
		deviceInfo := portmidi.Info(portmidi.DeviceID(i))
		var inputOutput string
		if deviceInfo.IsOutputAvailable {
			inputOutput = "output"
			p.OutputDevice = portmidi.DeviceID(i)
		} else {
			inputOutput = "input"
			p.InputDevice = portmidi.DeviceID(i)
		}
		logger.Debugf("%d) %s %s %s", i, deviceInfo.Interface, deviceInfo.Name, inputOutput)
	}
	if len(ports) == 2 {
		p.InputDevice = portmidi.DeviceID(ports[0])
		p.OutputDevice = portmidi.DeviceID(ports[1])
	}
	logger.Infof("Using input device %d and output device %d", p.InputDevice, p.OutputDevice)

	logger.Debug("Opening output stream")
	p.outputStream, err = portmidi.NewOutputStream(p.OutputDevice, 1024, 0)
	if err != nil {
		portmidi.Terminate()
		return nil, errors.Wrapf(err, "output stream from device %d", p.OutputDevice)
	}
	logger.Debug("Opening input stream")
	p.inputStream, err = portmidi.NewInputStream(p.InputDevice, 1024)
	if err != nil {
		p.outputStream.Close()
		portmidi.Terminate()
		return nil, errors.Wrapf(err, "input stream from device %d", p.InputDevice)
	}
	return
}

// Close will shutdown the streams
// and gracefully terminate.
func (p *Piano) Close() (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Piano.Close",
	})
	logger.Debug("Closing output stream")
	p.outputStream.Close()
	logger.Debug("Closing input stream")
	p.inputStream.Close()
	logger.Debug("Terminating portmidi")
	return portmidi.Terminate()
}

// Listen returns the note messages played on the keyboard. Their
// deltas are zero, timing is up to the receiver.
func (p *Piano) Listen() <-chan music.RawMessage {
	ch := make(chan music.RawMessage)
	events := p.inputStream.Listen()
	go func() {
		defer close(ch)
		for event := range events {
			if msg, ok := FromEvent(event); ok {
				ch <- msg
			}
		}
	}()
	return ch
}

// Play sends the messages right away, ignoring their deltas
func (p *Piano) Play(msgs ...music.RawMessage) (err error) {
	p.Lock()
	defer p.Unlock()
	logger := log.WithFields(log.Fields{
		"function": "Piano.Play",
	})
	for _, msg := range msgs {
		event := ToEvent(msg)
		logger.WithFields(log.Fields{
			"p": event.Data1,
			"v": event.Data2,
		}).Debug(msg.Kind)
		if err = p.outputStream.WriteShort(event.Status, event.Data1, event.Data2); err != nil {
			return errors.Wrapf(err, "playing %s", msg)
		}
	}
	return
}

// PlayStream plays a stream in real time, waiting tick for every
// tick of delta. It stops early when ctx is done.
func (p *Piano) PlayStream(ctx context.Context, stream music.Stream, tick time.Duration) error {
	return playStream(ctx, stream, tick, p.Play)
}

func playStream(ctx context.Context, stream music.Stream, tick time.Duration, play func(...music.RawMessage) error) error {
	for _, msg := range stream {
		if msg.Delta > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(msg.Delta) * tick):
			}
		}
		if err := play(msg); err != nil {
			return err
		}
	}
	return nil
}

// TickDuration is the length of one tick at the given tempo and
// resolution in ticks per beat
func TickDuration(bpm, ticksPerBeat int) time.Duration {
	if bpm <= 0 || ticksPerBeat <= 0 {
		panic(fmt.Sprintf("bad tempo %d bpm, %d ticks per beat", bpm, ticksPerBeat))
	}
	return time.Minute / time.Duration(bpm*ticksPerBeat)
}
