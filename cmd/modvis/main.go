// modvis plays tracker modules from the command line and prints the
// note/beat telemetry as it goes. Without file arguments it plays the
// built-in demo song.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	modvis "github.com/feralsun/modvis-go"
	"github.com/feralsun/modvis-go/internal/demotone"
	"github.com/feralsun/modvis-go/moddec"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		strategy   = flag.String("strategy", "isolated", "render strategy: isolated|inthread")
		volume     = flag.Float64("volume", 1.0, "output volume 0..1")
		quiet      = flag.Bool("quiet", false, "suppress per-note output")
		once       = flag.Bool("once", true, "stop after the playlist wraps once")
	)
	flag.Parse()

	strat, err := parseStrategy(*strategy)
	if err != nil {
		log.Fatal(err)
	}

	// The demo decoder stands in for a native module engine; swap in a
	// real moddec.Decoder to play actual files.
	var dec moddec.Decoder = demotone.New()

	pl, err := modvis.NewPlayer(*sampleRate, dec, modvis.WithStrategy(strat), modvis.WithOutput(modvis.OutputOto))
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()
	pl.SetVolume(*volume)

	events := pl.Watch()
	if !*quiet {
		pl.OnNote(func(note string, level float64, channel int) {
			fmt.Printf("  note %-3s  ch %d  level %.2f\n", note, channel, level)
		})
	}

	tracks, err := loadTracks(flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	pl.AddToQueue(tracks...)

	sync := modvis.NewBeatSync(func(beat int) {
		if !*quiet {
			fmt.Printf("beat %d\n", beat)
		}
	})

	started := 0
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		vs := pl.Update(0.016)
		sync.Observe(vs)
		for drained := false; !drained; {
			select {
			case ev := <-events:
				switch ev.Kind {
				case modvis.EventTrackStarted:
					started++
					title := pl.TrackTitle()
					if title == "" {
						title = ev.Name
					}
					fmt.Printf("now playing [%d] %s (%s)\n", ev.Index, ev.Name, title)
					if *once && started > len(tracks) {
						fmt.Println("playlist wrapped, stopping")
						pl.Stop()
						return
					}
				case modvis.EventLoadFailed:
					fmt.Printf("load failed [%d] %s, skipping\n", ev.Index, ev.Name)
				}
			default:
				drained = true
			}
		}
	}
}

func parseStrategy(name string) (modvis.Strategy, error) {
	switch name {
	case "isolated":
		return modvis.StrategyIsolated, nil
	case "inthread":
		return modvis.StrategyInThread, nil
	default:
		return "", fmt.Errorf("invalid -strategy %q (expected isolated|inthread)", name)
	}
}

func loadTracks(paths []string) ([]modvis.Track, error) {
	if len(paths) == 0 {
		return []modvis.Track{{Name: "demo"}}, nil
	}
	tracks := make([]modvis.Track, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, modvis.Track{Name: filepath.Base(p), Data: data})
	}
	return tracks, nil
}
