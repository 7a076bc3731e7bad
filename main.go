package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/ai"
	"github.com/schollz/neuralpiano/midifile"
	"github.com/schollz/neuralpiano/music"
	"github.com/schollz/neuralpiano/piano"
	"github.com/schollz/neuralpiano/player"
	"github.com/schollz/neuralpiano/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var version string

var modelFlag = cli.StringFlag{
	Name:   "model,m",
	Value:  "model.json.gz",
	Usage:  "trained model file",
	EnvVar: "NEURALPIANO_MODEL",
}

var predictorFlag = cli.StringFlag{
	Name:  "predictor",
	Value: ai.PredictorNetwork,
	Usage: "network or markov",
}

var portsFlag = cli.IntSliceFlag{Name: "ports", Usage: "input and output device ids"}

func main() {
	// a missing .env is fine, flags and the environment still work
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = version
	app.Compiled = time.Now()
	app.Name = "neuralpiano"
	app.Usage = "learn from MIDI performances and improvise new ones"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:   "debug",
			Usage:  "debug logging",
			EnvVar: "NEURALPIANO_DEBUG",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "train",
			Usage:     "train a model on MIDI files",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				modelFlag,
				cli.IntFlag{Name: "files", Usage: "only use the first N files (0 uses all)"},
				cli.IntFlag{Name: "window", Value: 50, Usage: "number of notes used to predict the next", EnvVar: "NEURALPIANO_WINDOW"},
				cli.IntFlag{Name: "hidden", Value: 64, Usage: "hidden nodes"},
				cli.IntFlag{Name: "epochs", Value: 20, Usage: "training epochs"},
				cli.Float64Flag{Name: "rate", Value: 0.1, Usage: "learning rate"},
				cli.Float64Flag{Name: "momentum", Value: 0.3, Usage: "momentum factor"},
			},
			Action: train,
		},
		{
			Name:  "generate",
			Usage: "continue a MIDI file with the model",
			Flags: []cli.Flag{
				modelFlag,
				predictorFlag,
				cli.StringFlag{Name: "seed,s", Usage: "MIDI file whose first notes start the generation"},
				cli.IntFlag{Name: "count,n", Value: 100, Usage: "number of notes to generate"},
				cli.Float64Flag{Name: "temperature,t", Value: 0, Usage: "standard deviation of the noise added to predictions", EnvVar: "NEURALPIANO_TEMPERATURE"},
				cli.Int64Flag{Name: "random-seed", Usage: "seed for the noise (0 picks one)"},
				cli.StringFlag{Name: "out,o", Usage: "output MIDI file (default generated-ID.mid)"},
				cli.StringFlag{Name: "json", Usage: "also save the generated notes as JSON"},
				cli.BoolFlag{Name: "play", Usage: "play the result on the MIDI output device"},
				cli.IntFlag{Name: "bpm", Value: 120, Usage: "BPM used with --play"},
				portsFlag,
			},
			Action: generate,
		},
		{
			Name:  "play",
			Usage: "improvise live on a MIDI keyboard",
			Flags: []cli.Flag{
				modelFlag,
				predictorFlag,
				cli.IntFlag{Name: "bpm", Value: 120, Usage: "BPM to use"},
				cli.IntFlag{Name: "resolution", Value: 480, Usage: "ticks per beat, must match the training files"},
				cli.IntFlag{Name: "waits", Value: 2, Usage: "beats of silence before AI jumps in"},
				cli.IntFlag{Name: "length", Value: 32, Usage: "notes per improvisation"},
				cli.Float64Flag{Name: "temperature,t", Value: 0.05, Usage: "standard deviation of the noise added to predictions"},
				cli.StringFlag{Name: "file,f", Value: "music_history.json", Usage: "file to save what was played"},
				portsFlag,
			},
			Action: play,
		},
		{
			Name:  "serve",
			Usage: "serve generation over HTTP",
			Flags: []cli.Flag{
				modelFlag,
				cli.StringFlag{Name: "port", Value: "8080", EnvVar: "PORT"},
				cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "limit for a single generation"},
				cli.StringFlag{Name: "sentry-dsn", Usage: "report server errors to Sentry", EnvVar: "SENTRY_DSN"},
			},
			Action: serve,
		},
		{
			Name:      "extract",
			Usage:     "print the notes of a MIDI file as JSON",
			ArgsUsage: "FILE OUT.json",
			Action:    extract,
		},
	}
	return app
}

func readNotes(filename string) (music.Sequence, error) {
	stream, err := midifile.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return music.Extract(stream), nil
}

func train(c *cli.Context) error {
	logger := log.WithFields(log.Fields{
		"function": "train",
	})
	files := []string{}
	for _, arg := range c.Args() {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return errors.Wrapf(err, "bad pattern %s", arg)
		}
		files = append(files, matches...)
	}
	if n := c.Int("files"); n > 0 && n < len(files) {
		files = files[:n]
	}
	if len(files) == 0 {
		return errors.New("no MIDI files to train on")
	}

	corpus := []music.Sequence{}
	for _, f := range files {
		logger.Infof("Loading %s", f)
		notes, err := readNotes(f)
		if err != nil {
			return err
		}
		corpus = append(corpus, notes)
	}

	brain := ai.New()
	brain.WindowLength = c.Int("window")
	brain.HiddenNodes = c.Int("hidden")
	brain.Epochs = c.Int("epochs")
	brain.LearningRate = c.Float64("rate")
	brain.Momentum = c.Float64("momentum")
	logger.Infof("Training using %d MIDI files", len(files))
	if err := brain.Learn(corpus); err != nil {
		return err
	}
	if err := brain.Save(c.String("model")); err != nil {
		return err
	}
	logger.Infof("Model saved as %s", c.String("model"))
	return nil
}

func generate(c *cli.Context) error {
	logger := log.WithFields(log.Fields{
		"function": "generate",
	})
	brain, err := ai.Open(c.String("model"))
	if err != nil {
		return err
	}
	if c.String("seed") == "" {
		return errors.New("a seed file is required")
	}
	played, err := readNotes(c.String("seed"))
	if err != nil {
		return err
	}
	if len(played) > brain.WindowLength {
		played = played[:brain.WindowLength]
	}

	req := ai.Request{
		Seed:        played,
		Count:       c.Int("count"),
		Temperature: c.Float64("temperature"),
		Predictor:   c.String("predictor"),
	}
	if s := c.Int64("random-seed"); s != 0 {
		req.RandomSeed = &s
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	res, err := brain.Generate(ctx, req)
	if err != nil {
		if len(res.Notes) == 0 {
			return err
		}
		logger.Warnf("Keeping %d notes: %s", len(res.Notes), err)
	}

	out := c.String("out")
	if out == "" {
		out = fmt.Sprintf("generated-%s.mid", res.ID)
	}
	stream := music.SerializeAll(0, played, res.Notes)
	if err = midifile.WriteFile(out, stream, midifile.DefaultOptions); err != nil {
		return err
	}
	if fname := c.String("json"); fname != "" {
		if err = res.Notes.Save(fname); err != nil {
			return err
		}
	}
	logger.Infof("Generated music saved to %s", out)
	if !c.Bool("play") {
		return nil
	}

	keys, err := piano.New(c.IntSlice("ports")...)
	if err != nil {
		return err
	}
	defer keys.Close()
	logger.Infof("Playing %d notes", len(played)+len(res.Notes))
	err = keys.PlayStream(ctx, stream, piano.TickDuration(c.Int("bpm"), midifile.DefaultOptions.Resolution))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func play(c *cli.Context) (err error) {
	brain, err := ai.Open(c.String("model"))
	if err != nil {
		return
	}
	brain.Temperature = c.Float64("temperature")
	brain.Predictor = c.String("predictor")
	if _, err = brain.Model().Predictor(brain.Predictor); err != nil {
		return
	}

	fmt.Println(`

		_______________________________________
	 |  | | | |  |  | | | | | |  |  | | | |  |
	 |  | | | |  |  | | | | | |  |  | | | |  |
	 |  |_| |_|  |  |_| |_| |_|  |  |_| |_|  |
	 |   |   |   |   |   |   |   |   |   |   |
	 |___|___|___|___|___|___|___|___|___|___|

	 Lets play some music!
											`)
	keys, err := piano.New(c.IntSlice("ports")...)
	if err != nil {
		return
	}
	p := player.New(keys, brain)
	p.BPM = c.Int("bpm")
	p.TicksPerBeat = c.Int("resolution")
	p.BeatsOfSilence = c.Int("waits")
	p.LickLength = c.Int("length")
	p.HistoryFile = c.String("file")

	// Exit on Ctl+C
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return p.Start(ctx)
}

func serve(c *cli.Context) error {
	brain, err := ai.Open(c.String("model"))
	if err != nil {
		return err
	}
	if !log.IsLevelEnabled(log.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware := []gin.HandlerFunc{}
	if dsn := c.String("sentry-dsn"); dsn != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:     dsn,
			Release: "neuralpiano@" + version,
		}); err != nil {
			log.Warnf("Sentry disabled: %s", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			middleware = append(middleware, server.SentryMiddleware())
		}
	}
	router := server.SetupRouter(server.NewHandler(brain, c.Duration("timeout")), middleware...)
	log.Infof("Starting server on port %s", c.String("port"))
	if err = router.Run(":" + c.String("port")); err != nil {
		sentry.CaptureException(err)
	}
	return err
}

func extract(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: extract FILE OUT.json")
	}
	notes, err := readNotes(c.Args().Get(0))
	if err != nil {
		return err
	}
	log.Infof("Extracted %d notes", len(notes))
	return notes.Save(c.Args().Get(1))
}
