package mixer

import "time"

// Buffer holds decoded mono PCM.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playable length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// PlayerState mirrors the transport states for a single source.
type PlayerState string

const (
	PlayerStopped PlayerState = "stopped"
	PlayerStarted PlayerState = "started"
)

// Player plays one buffer, optionally looping and locked to the transport.
type Player struct {
	source   string
	buffer   *Buffer
	loop     bool
	state    PlayerState
	synced   *Transport
	cursor   int
	disposed bool
}

func newPlayer(source string, loop bool) *Player {
	return &Player{source: source, loop: loop, state: PlayerStopped}
}

// Loaded reports whether a buffer is attached.
func (p *Player) Loaded() bool {
	return p != nil && !p.disposed && p.buffer != nil
}

func (p *Player) State() PlayerState { return p.state }

func (p *Player) Source() string { return p.source }

func (p *Player) setBuffer(b *Buffer) {
	if p.disposed {
		return
	}
	p.buffer = b
}

// Sync locks the player to the transport so transport stops reach it.
func (p *Player) Sync(t *Transport) {
	if p.synced == t {
		return
	}
	p.Unsync()
	p.synced = t
	t.attach(p)
}

func (p *Player) Unsync() {
	if p.synced != nil {
		p.synced.detach(p)
		p.synced = nil
	}
}

// Start begins playback at offset seconds into the buffer.
func (p *Player) Start(offset float64) {
	if !p.Loaded() {
		return
	}
	p.cursor = 0
	if offset > 0 {
		p.cursor = int(offset * float64(p.buffer.SampleRate))
	}
	p.state = PlayerStarted
}

// Stop is idempotent.
func (p *Player) Stop() {
	p.state = PlayerStopped
	p.cursor = 0
}

func (p *Player) Dispose() {
	p.Stop()
	p.Unsync()
	p.buffer = nil
	p.disposed = true
}

// next returns the next sample, or 0 when stopped or past the end.
func (p *Player) next() float64 {
	if p.state != PlayerStarted || !p.Loaded() || len(p.buffer.Samples) == 0 {
		return 0
	}
	if p.cursor >= len(p.buffer.Samples) {
		if !p.loop {
			return 0
		}
		p.cursor = 0
	}
	s := float64(p.buffer.Samples[p.cursor])
	p.cursor++
	return s
}

// Gain scales its input; a muted gain outputs silence.
type Gain struct {
	gain  float64
	muted bool
}

func newGain(g float64) *Gain { return &Gain{gain: g} }

func (g *Gain) process(x float64) float64 {
	if g.muted {
		return 0
	}
	return x * g.gain
}

// FeedbackDelay is a single-tap delay line with feedback and a wet/dry mix.
type FeedbackDelay struct {
	delayTime float64
	feedback  float64
	wet       float64

	sampleRate int
	line       []float64
	pos        int
}

func newFeedbackDelay(sampleRate int) *FeedbackDelay {
	return &FeedbackDelay{
		sampleRate: sampleRate,
		line:       make([]float64, int(MaxDelayTime*float64(sampleRate))+1),
	}
}

func (d *FeedbackDelay) process(x float64) float64 {
	n := len(d.line)
	delaySamples := int(d.delayTime * float64(d.sampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	if delaySamples >= n {
		delaySamples = n - 1
	}
	read := (d.pos - delaySamples + n) % n
	delayed := d.line[read]
	d.line[d.pos] = x + delayed*d.feedback
	d.pos = (d.pos + 1) % n
	return (1-d.wet)*x + d.wet*delayed
}

// NodeSet is the player -> gain -> delay chain owned by one track.
type NodeSet struct {
	Player *Player
	Gain   *Gain
	Delay  *FeedbackDelay
}

func (n *NodeSet) process() float64 {
	return n.Delay.process(n.Gain.process(n.Player.next()))
}

func (n *NodeSet) dispose() {
	n.Player.Dispose()
	n.Delay.line = nil
}
