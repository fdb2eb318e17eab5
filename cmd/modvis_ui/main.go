// modvis_ui is a minimal audio-reactive visualizer: channel bars,
// trigger flashes and a kick pulse, all driven by the player's
// telemetry rather than the raw PCM.
package main

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	modvis "github.com/feralsun/modvis-go"
	"github.com/feralsun/modvis-go/internal/demotone"
	"github.com/feralsun/modvis-go/telemetry"
)

const (
	windowW      = 640
	windowH      = 360
	uiSampleRate = 48000
)

var (
	bgColor      = color.RGBA{16, 12, 24, 255}
	barColor     = color.RGBA{90, 200, 250, 255}
	triggerColor = color.RGBA{250, 240, 120, 255}
	kickColor    = color.RGBA{250, 80, 120, 40}
)

type game struct {
	player *modvis.Player
	sync   *modvis.BeatSync
	state  *telemetry.VisualState
	beats  int
	muted  bool
}

func (g *game) Update() error {
	g.state = g.player.Update(1.0 / float64(ebiten.TPS()))
	g.sync.Observe(g.state)

	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.muted = g.player.ToggleMute()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		idx := g.player.CurrentIndex() + 1
		_ = g.player.PlayAtIndex(idx % max(1, g.player.PlaylistLen()))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		g.player.SetVolume(g.player.Volume() + 0.1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		g.player.SetVolume(g.player.Volume() - 0.1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	if g.state == nil {
		return
	}

	// Kick pulse washes the whole frame.
	if g.state.KickTrigger > 0.01 {
		c := kickColor
		c.A = uint8(120 * g.state.KickTrigger)
		vector.DrawFilledRect(screen, 0, 0, windowW, windowH, c, false)
	}

	n := len(g.state.Channels)
	if n > 0 {
		barW := float32(windowW) / float32(n)
		for i, ch := range g.state.Channels {
			h := float32(ch.Level) * (windowH - 80)
			x := float32(i) * barW
			vector.DrawFilledRect(screen, x+4, windowH-40-h, barW-8, h, barColor, false)
			if ch.Trigger > 0.01 {
				c := triggerColor
				c.A = uint8(255 * ch.Trigger)
				vector.DrawFilledRect(screen, x+4, windowH-40-h-10, barW-8, 6, c, false)
			}
		}
	}

	mute := ""
	if g.muted {
		mute = "  [muted]"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"%s\nbpm %.0f  order %d  row %02d  beats %d  groove %.2f%s\n[m]ute [n]ext [up/down] volume [esc] quit",
		g.player.NowPlaying(), g.state.BPM, g.state.PatternIndex, g.state.Row, g.beats, g.state.GrooveAmount, mute))
}

func (g *game) Layout(int, int) (int, int) { return windowW, windowH }

func main() {
	pl, err := modvis.NewPlayer(uiSampleRate, demotone.New(), modvis.WithOutput(modvis.OutputEbiten))
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()

	tracks := []modvis.Track{{Name: "demo"}}
	for _, p := range os.Args[1:] {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Fatal(err)
		}
		tracks = append(tracks, modvis.Track{Name: filepath.Base(p), Data: data})
	}
	pl.AddToQueue(tracks...)

	g := &game{player: pl}
	g.sync = modvis.NewBeatSync(func(beat int) { g.beats = beat })

	ebiten.SetWindowSize(windowW*2, windowH*2)
	ebiten.SetWindowTitle("modvis")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
