package mixer

import "time"

// TransportState is either started or stopped.
type TransportState string

const (
	TransportStopped TransportState = "stopped"
	TransportStarted TransportState = "started"

	// SchedulingOffset is added to every transport start.
	SchedulingOffset = 100 * time.Millisecond
	DefaultBPM       = 120.0
)

// Transport is the session clock shared by every synced player.
type Transport struct {
	state     TransportState
	bpm       float64
	startedAt time.Time
	players   map[*Player]struct{}
	now       func() time.Time
}

func newTransport(now func() time.Time) *Transport {
	if now == nil {
		now = time.Now
	}
	return &Transport{
		state:   TransportStopped,
		bpm:     DefaultBPM,
		players: make(map[*Player]struct{}),
		now:     now,
	}
}

func (t *Transport) State() TransportState { return t.state }

func (t *Transport) BPM() float64 { return t.bpm }

func (t *Transport) SetBPM(bpm float64) {
	if bpm > 0 {
		t.bpm = bpm
	}
}

// StartedAt is the scheduled start time, zero while stopped.
func (t *Transport) StartedAt() time.Time { return t.startedAt }

// Start schedules the clock offset from now. Starting a started transport is a no-op.
func (t *Transport) Start(offset time.Duration) {
	if t.state == TransportStarted {
		return
	}
	t.state = TransportStarted
	t.startedAt = t.now().Add(offset)
}

// Stop halts the clock and every synced player.
func (t *Transport) Stop() {
	if t.state == TransportStopped {
		return
	}
	t.state = TransportStopped
	t.startedAt = time.Time{}
	for p := range t.players {
		p.Stop()
	}
}

func (t *Transport) attach(p *Player) { t.players[p] = struct{}{} }

func (t *Transport) detach(p *Player) { delete(t.players, p) }
