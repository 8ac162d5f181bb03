// Command midiseq loads a Standard MIDI File and either prints a track
// summary (--dump) or plays it through the sequencer engine, reporting
// state changes via the notifier and driving the engine off the shared
// tick scheduler (§C10/C9/C8/C6/C7). Output goes to a console port: this
// binary exists to exercise the library end to end, not to talk to real
// hardware.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/nicmidi-go/midiseq/pkg/cli"
	"github.com/nicmidi-go/midiseq/pkg/driver"
	"github.com/nicmidi-go/midiseq/pkg/logger"
	"github.com/nicmidi-go/midiseq/pkg/midi"
	"github.com/nicmidi-go/midiseq/pkg/notifier"
	"github.com/nicmidi-go/midiseq/pkg/scheduler"
	"github.com/nicmidi-go/midiseq/pkg/sequencer"
	"github.com/nicmidi-go/midiseq/pkg/smfcodec"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	config, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if config.ShowHelp {
		cli.PrintHelp()
		return 0
	}
	if config.FilePath == "" {
		fmt.Fprintln(os.Stderr, "midiseq: no input file given")
		cli.PrintHelp()
		return 2
	}
	if err := logger.InitLogger(config.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log := logger.GetLogger()

	f, err := os.Open(config.FilePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer f.Close()

	mt, format, err := smfcodec.Load(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "midiseq: failed to load", config.FilePath, ":", err)
		return 1
	}
	log.Info("loaded song", "path", config.FilePath, "format", format,
		"tracks", mt.NumTracks(), "clocksPerBeat", mt.ClocksPerBeat())

	if config.DumpOnly {
		dumpSummary(mt, format)
		return 0
	}

	var n notifier.Notifier = notifier.NoOpNotifier{}
	if !config.Headless {
		n = &notifier.ConsoleNotifier{Logger: log}
	}

	engine := sequencer.NewEngine(mt, n)
	ports := make([]*consolePort, mt.NumTracks())
	for i := 0; i < mt.NumTracks(); i++ {
		ports[i] = &consolePort{id: i, log: log, quiet: config.Headless}
		out := driver.NewOutputDriver(ports[i], true)
		out.SetErrorHandler(func(err error) {
			log.Error("output error", "track", i, "error", err)
		})
		if err := out.Open(i); err != nil {
			log.Error("failed to open output port", "track", i, "error", err)
			continue
		}
		engine.SetOutput(i, out)
	}

	sched := scheduler.Default()
	sched.Register(engine)
	defer sched.Unregister(engine)

	engine.SetPlayMode(sequencer.PlayBounded)
	engine.Play(sched.NowMs())

	deadline := time.Now().Add(config.Timeout)
	for engine.Playing() {
		if config.Timeout > 0 && time.Now().After(deadline) {
			engine.Stop()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return 0
}

// dumpSummary prints a one-line-per-track overview: event count, end
// time, and the track's latched name if it has one.
func dumpSummary(mt *midi.MultiTrack, format smfcodec.Format) {
	fmt.Printf("format=%d tracks=%d clocksPerBeat=%d\n", format, mt.NumTracks(), mt.ClocksPerBeat())
	for i := 0; i < mt.NumTracks(); i++ {
		tr := mt.Track(i)
		name := ""
		for j := 0; j < tr.Len(); j++ {
			if ev := tr.Event(j); ev.Message.IsTrackName() {
				name = ev.Message.Text()
				break
			}
		}
		end := midi.ClockTime(0)
		if tr.Len() > 0 {
			end = tr.EndTime()
		}
		fmt.Printf("  track %2d: %4d events, end=%-8d %s\n", i, tr.Len(), end, name)
	}
}
