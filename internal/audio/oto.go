package audio

import (
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer plays a SampleSource straight through oto, without going
// through the ebiten context. Used by headless programs that want the
// lowest-latency path.
type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	reader *StreamReader
	mu     sync.Mutex
	played bool
}

func NewOtoPlayer(sampleRate int, source SampleSource) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	reader := NewStreamReader(source)
	return &OtoPlayer{
		ctx:    ctx,
		player: ctx.NewPlayer(reader),
		reader: reader,
	}, nil
}

func (p *OtoPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.player.Play()
	p.played = true
}

func (p *OtoPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.player.Pause()
}

func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.played {
		return p.reader.Close()
	}
	p.played = false
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
