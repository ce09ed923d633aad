package mixer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"EchoCanvas/core/audio"
	"EchoCanvas/logger"

	"github.com/google/uuid"
)

var (
	ErrTrackNotReady = errors.New("track not ready")
	ErrUnknownTrack  = errors.New("unknown track")
	ErrNotActive     = errors.New("mixer session not active")
	ErrDisposed      = errors.New("mixer session disposed")
)

const masterLevel = 0.75

// Options configures a Session. Zero values fall back to the defaults.
type Options struct {
	Loader     BufferLoader
	Tracks     []TrackSpec
	BPM        float64
	SampleRate int
	Now        func() time.Time
}

// Session owns the tracks, audio graph and transport of one mixer.
// All operations are safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	loader     BufferLoader
	specs      []TrackSpec
	bpm        float64
	sampleRate int
	active     bool
	disposed   bool

	tracks    *registry
	nodes     map[string]*NodeSet
	master    *Gain
	transport *Transport
	temps     map[string]func() error

	// signalled when tracks are flagged for rebuild outside a client command
	changes chan struct{}
}

func NewSession(opts Options) *Session {
	specs := opts.Tracks
	if len(specs) == 0 {
		specs = DefaultTrackSpecs()
	}
	bpm := opts.BPM
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Session{
		ID:         uuid.New().String(),
		loader:     opts.Loader,
		specs:      specs,
		bpm:        bpm,
		sampleRate: sampleRate,
		tracks:     newRegistry(),
		nodes:      make(map[string]*NodeSet),
		master:     newGain(masterLevel),
		transport:  newTransport(opts.Now),
		temps:      make(map[string]func() error),
		changes:    make(chan struct{}, 1),
	}
}

// Changes receives a value after MarkSourceChanged flags at least one track.
// Owners should call Sync when it fires so the tracks become playable again.
func (s *Session) Changes() <-chan struct{} { return s.changes }

func (s *Session) SampleRate() int { return s.sampleRate }

// LoadFailure describes one source that could not be loaded.
type LoadFailure struct {
	TrackID string `json:"trackId"`
	Source  string `json:"source"`
	Err     error  `json:"-"`
}

// LoadReport summarises one batch of buffer loads.
type LoadReport struct {
	Loaded []string      `json:"loaded"`
	Failed []LoadFailure `json:"failed,omitempty"`
}

func (r *LoadReport) HasFailures() bool {
	return r != nil && len(r.Failed) > 0
}

// Warning returns a single user-facing message for all failures, or "".
func (r *LoadReport) Warning() string {
	if !r.HasFailures() {
		return ""
	}
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.TrackID)
	}
	return fmt.Sprintf("Some tracks could not be loaded (%s). Check the sources and try again.", strings.Join(ids, ", "))
}

// Activate initialises the transport and the default tracks, then loads
// them. Calling it again is a no-op.
func (s *Session) Activate(ctx context.Context) (*LoadReport, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	if s.active {
		s.mu.Unlock()
		return &LoadReport{}, nil
	}
	s.active = true
	s.transport.SetBPM(s.bpm)
	for _, spec := range s.specs {
		s.tracks.add(newTrack(spec))
	}
	s.mu.Unlock()

	logger.Info("[Mixer] session activated",
		logger.String("sessionId", s.ID),
		logger.Int("tracks", len(s.specs)),
		logger.Float64("bpm", s.bpm))

	return s.Sync(ctx)
}

type pendingLoad struct {
	trackID string
	source  string
	player  *Player
}

type loadResult struct {
	buf *Buffer
	err error
}

// Sync rebuilds graphs for tracks without nodes or with a replaced source,
// applies parameters to the rest, and loads new buffers as one batch.
// Failed loads are reported, not retried.
func (s *Session) Sync(ctx context.Context) (*LoadReport, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	if !s.active {
		s.mu.Unlock()
		return nil, ErrNotActive
	}

	var pending []pendingLoad
	s.tracks.each(func(t *Track) {
		n := s.nodes[t.ID]
		if n == nil || t.dirty {
			n = s.rebuildGraph(t)
			pending = append(pending, pendingLoad{trackID: t.ID, source: t.CurrentSource, player: n.Player})
		}
		applyParameters(n, t)
	})
	loader := s.loader
	s.mu.Unlock()

	results := make([]loadResult, len(pending))
	var wg sync.WaitGroup
	for i, job := range pending {
		wg.Add(1)
		go func(i int, job pendingLoad) {
			defer wg.Done()
			if loader == nil {
				results[i].err = errors.New("no buffer loader configured")
				return
			}
			buf, err := loader.Load(ctx, job.source)
			if err == nil && buf == nil {
				err = errors.New("loader returned no buffer")
			}
			results[i] = loadResult{buf: buf, err: err}
		}(i, job)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &LoadReport{}
	for i, job := range pending {
		if err := results[i].err; err != nil {
			report.Failed = append(report.Failed, LoadFailure{TrackID: job.trackID, Source: job.source, Err: err})
			continue
		}
		// a player disposed while loading ignores the buffer
		job.player.setBuffer(results[i].buf)
		report.Loaded = append(report.Loaded, job.trackID)
	}

	if report.HasFailures() {
		for _, f := range report.Failed {
			logger.Warn("[Mixer] failed to load track source",
				logger.String("sessionId", s.ID),
				logger.String("trackId", f.TrackID),
				logger.String("source", f.Source),
				logger.ErrorField(f.Err))
		}
	}
	return report, nil
}

// rebuildGraph disposes the track's previous nodes and builds a fresh chain
// from its current source. Caller holds s.mu.
func (s *Session) rebuildGraph(t *Track) *NodeSet {
	if old := s.nodes[t.ID]; old != nil {
		old.dispose()
	}
	n := &NodeSet{
		Player: newPlayer(t.CurrentSource, t.Loop),
		Gain:   newGain(t.Volume),
		Delay:  newFeedbackDelay(s.sampleRate),
	}
	s.nodes[t.ID] = n
	t.dirty = false
	t.IsPlaying = false
	return n
}

func applyParameters(n *NodeSet, t *Track) {
	n.Gain.gain = t.Volume
	n.Gain.muted = t.IsMuted
	n.Player.loop = t.Loop
	n.Delay.delayTime = t.DelayTime
	n.Delay.feedback = t.DelayFeedback
	n.Delay.wet = t.DelayMix
}

// ready reports whether the track has a current, loaded player. Caller holds s.mu.
func (s *Session) ready(t *Track) (*NodeSet, bool) {
	n := s.nodes[t.ID]
	if n == nil || t.dirty || !n.Player.Loaded() {
		return nil, false
	}
	return n, true
}

// ReplaceTrackSource stops the track, releases its previous temporary
// resource and points it at src. The graph is rebuilt on the next Sync.
// Unknown tracks are ignored and src is released.
func (s *Session) ReplaceTrackSource(trackID string, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tracks.get(trackID)
	if s.disposed || t == nil {
		releaseQuietly(trackID, src.Release)
		return
	}
	if n := s.nodes[trackID]; n != nil {
		n.Player.Stop()
	}
	t.IsPlaying = false

	s.releaseTemp(trackID)
	if src.Release != nil {
		s.temps[trackID] = src.Release
	}

	t.CurrentSource = src.Ref
	if src.Name != "" {
		t.Title = src.Name
	}
	t.IsUserSupplied = true
	t.dirty = true

	logger.Info("[Mixer] track source replaced",
		logger.String("sessionId", s.ID),
		logger.String("trackId", trackID),
		logger.String("title", t.Title))
}

// TogglePlayback starts a stopped track or stops a playing one and returns
// the new playing state. A track without a loaded buffer is left untouched.
func (s *Session) TogglePlayback(trackID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.disposed {
		return false, ErrNotActive
	}
	t := s.tracks.get(trackID)
	if t == nil {
		return false, ErrUnknownTrack
	}
	n, ok := s.ready(t)
	if !ok {
		return t.IsPlaying, ErrTrackNotReady
	}

	if t.IsPlaying {
		n.Player.Stop()
	} else {
		s.transport.Start(SchedulingOffset)
		n.Player.Sync(s.transport)
		n.Player.Start(0)
	}
	t.IsPlaying = !t.IsPlaying
	return t.IsPlaying, nil
}

// StopTrack stops one track. Stopping a stopped track is a no-op.
func (s *Session) StopTrack(trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tracks.get(trackID)
	if t == nil {
		return ErrUnknownTrack
	}
	if n := s.nodes[trackID]; n != nil {
		n.Player.Stop()
	}
	t.IsPlaying = false
	return nil
}

// SetParameter updates one control and pushes it onto the live nodes.
func (s *Session) SetParameter(trackID string, param Param, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tracks.get(trackID)
	if t == nil {
		return ErrUnknownTrack
	}
	if err := t.set(param, value); err != nil {
		return err
	}
	if n := s.nodes[trackID]; n != nil && !t.dirty {
		applyParameters(n, t)
	}
	return nil
}

// PlayAll starts every loaded track that is not already playing and returns
// the ids it started.
func (s *Session) PlayAll() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.disposed {
		return nil, ErrNotActive
	}
	s.transport.Start(SchedulingOffset)

	var started []string
	s.tracks.each(func(t *Track) {
		if t.IsPlaying {
			return
		}
		n, ok := s.ready(t)
		if !ok {
			return
		}
		n.Player.Sync(s.transport)
		n.Player.Start(0)
		t.IsPlaying = true
		started = append(started, t.ID)
	})
	return started, nil
}

// StopAll stops the transport and every player.
func (s *Session) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
}

func (s *Session) stopAllLocked() {
	s.transport.Stop()
	s.tracks.each(func(t *Track) {
		if n := s.nodes[t.ID]; n != nil {
			n.Player.Stop()
		}
		t.IsPlaying = false
	})
}

// MarkSourceChanged flags every non user-supplied track playing ref for a
// rebuild, stopping it first. It returns the number of tracks affected.
func (s *Session) MarkSourceChanged(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return 0
	}
	count := 0
	s.tracks.each(func(t *Track) {
		if t.IsUserSupplied || t.CurrentSource != ref {
			return
		}
		if n := s.nodes[t.ID]; n != nil {
			n.Player.Stop()
		}
		t.IsPlaying = false
		t.dirty = true
		count++
	})
	if count > 0 {
		select {
		case s.changes <- struct{}{}:
		default:
		}
	}
	return count
}

// TrackView is a track record plus its load state.
type TrackView struct {
	Track
	Loaded bool `json:"loaded"`
}

type TransportView struct {
	State TransportState `json:"state"`
	BPM   float64        `json:"bpm"`
}

// Snapshot is a point-in-time copy of the session for clients.
type Snapshot struct {
	SessionID string        `json:"sessionId"`
	Active    bool          `json:"active"`
	Transport TransportView `json:"transport"`
	Tracks    []TrackView   `json:"tracks"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.ID,
		Active:    s.active && !s.disposed,
		Transport: TransportView{State: s.transport.State(), BPM: s.transport.BPM()},
		Tracks:    make([]TrackView, 0, s.tracks.len()),
	}
	s.tracks.each(func(t *Track) {
		_, loaded := s.ready(t)
		snap.Tracks = append(snap.Tracks, TrackView{Track: *t, Loaded: loaded})
	})
	return snap
}

// Dispose stops everything, disposes every node and releases all temporary
// resources. It is safe to call more than once.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.stopAllLocked()
	s.disposed = true

	for id, n := range s.nodes {
		n.dispose()
		delete(s.nodes, id)
	}
	for id := range s.temps {
		s.releaseTemp(id)
	}
	s.master = nil

	logger.Info("[Mixer] session disposed", logger.String("sessionId", s.ID))
}

// releaseTemp frees the temporary resource held for a track. Caller holds s.mu.
func (s *Session) releaseTemp(trackID string) {
	release, ok := s.temps[trackID]
	if !ok {
		return
	}
	delete(s.temps, trackID)
	releaseQuietly(trackID, release)
}

func releaseQuietly(trackID string, release func() error) {
	if release == nil {
		return
	}
	if err := release(); err != nil {
		logger.Warn("[Mixer] failed to release temporary source",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
	}
}
