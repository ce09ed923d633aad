package mixer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeLoader struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]bool
	gates  map[string]chan struct{}
	levels map[string]float32
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		fail:   make(map[string]bool),
		gates:  make(map[string]chan struct{}),
		levels: make(map[string]float32),
	}
}

func (f *fakeLoader) Load(ctx context.Context, source string) (*Buffer, error) {
	f.mu.Lock()
	f.calls = append(f.calls, source)
	gate := f.gates[source]
	fail := f.fail[source]
	level, ok := f.levels[source]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("404 not found")
	}
	if !ok {
		level = 0.1
	}
	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = level
	}
	return &Buffer{Samples: samples, SampleRate: 1000}, nil
}

func (f *fakeLoader) calledWith(source string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == source {
			return true
		}
	}
	return false
}

var testSpecs = []TrackSpec{
	{ID: "t1", Title: "Alpha Loop", Source: "a.mp3"},
	{ID: "t2", Title: "Beta Synth", Source: "b.mp3"},
	{ID: "t3", Title: "Gamma Loop", Source: "c.mp3"},
}

func newTestSession(t *testing.T, loader *fakeLoader) *Session {
	t.Helper()
	s := NewSession(Options{Loader: loader, Tracks: testSpecs, SampleRate: 1000})
	t.Cleanup(s.Dispose)
	return s
}

func activate(t *testing.T, s *Session) *LoadReport {
	t.Helper()
	report, err := s.Activate(context.Background())
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return report
}

func trackView(t *testing.T, s *Session, id string) TrackView {
	t.Helper()
	for _, tv := range s.Snapshot().Tracks {
		if tv.ID == id {
			return tv
		}
	}
	t.Fatalf("track %s not in snapshot", id)
	return TrackView{}
}

func TestActivatePopulatesDefaults(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	report := activate(t, s)

	if len(report.Loaded) != 3 || report.HasFailures() {
		t.Fatalf("report = %+v, want 3 loaded", report)
	}
	snap := s.Snapshot()
	if !snap.Active || snap.Transport.BPM != 120 || snap.Transport.State != TransportStopped {
		t.Errorf("snapshot header = %+v", snap)
	}
	wantIDs := []string{"t1", "t2", "t3"}
	for i, tv := range snap.Tracks {
		if tv.ID != wantIDs[i] {
			t.Errorf("track %d = %s, want %s", i, tv.ID, wantIDs[i])
		}
		if tv.Volume != 0.75 || tv.DelayMix != 0 || tv.DelayTime != 0.2 || tv.DelayFeedback != 0.3 {
			t.Errorf("%s defaults = %+v", tv.ID, tv.Track)
		}
		if !tv.Loaded {
			t.Errorf("%s not loaded", tv.ID)
		}
	}
	if !snap.Tracks[0].Loop || snap.Tracks[1].Loop {
		t.Errorf("loop flags derived from titles are wrong: %v %v", snap.Tracks[0].Loop, snap.Tracks[1].Loop)
	}

	again := activate(t, s)
	if len(again.Loaded) != 0 || len(s.Snapshot().Tracks) != 3 {
		t.Errorf("second Activate was not a no-op: %+v", again)
	}
}

func TestDefaultTrackSpecs(t *testing.T) {
	specs := DefaultTrackSpecs()
	if len(specs) != 3 {
		t.Fatalf("len = %d, want 3", len(specs))
	}
	if specs[0].Title != "Ominous Loop" || specs[1].Title != "Casio Synth C2" || specs[2].Title != "Gabba Kick Loop" {
		t.Errorf("titles = %+v", specs)
	}
}

func TestSetParameter(t *testing.T) {
	tests := []struct {
		name    string
		param   Param
		value   any
		wantErr error
		check   func(Track) bool
	}{
		{"feedback clamped", ParamDelayFeedback, 1.5, nil, func(tr Track) bool { return tr.DelayFeedback == MaxDelayFeedback }},
		{"feedback in range", ParamDelayFeedback, 0.5, nil, func(tr Track) bool { return tr.DelayFeedback == 0.5 }},
		{"volume floor", ParamVolume, -2.0, nil, func(tr Track) bool { return tr.Volume == 0 }},
		{"volume ceiling", ParamVolume, 3, nil, func(tr Track) bool { return tr.Volume == 1 }},
		{"delay time ceiling", ParamDelayTime, 4.0, nil, func(tr Track) bool { return tr.DelayTime == MaxDelayTime }},
		{"delay mix", ParamDelayMix, 0.4, nil, func(tr Track) bool { return tr.DelayMix == 0.4 }},
		{"mute", ParamMuted, true, nil, func(tr Track) bool { return tr.IsMuted }},
		{"loop off", ParamLoop, false, nil, func(tr Track) bool { return !tr.Loop }},
		{"nan rejected", ParamVolume, math.NaN(), ErrInvalidValue, func(tr Track) bool { return tr.Volume == 0.75 }},
		{"wrong type", ParamMuted, 1.0, ErrInvalidValue, func(tr Track) bool { return !tr.IsMuted }},
		{"unknown param", Param("pan"), 0.1, ErrUnknownParam, func(tr Track) bool { return true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, newFakeLoader())
			activate(t, s)

			err := s.SetParameter("t1", tt.param, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tv := trackView(t, s, "t1"); !tt.check(tv.Track) {
				t.Errorf("unexpected track state %+v", tv.Track)
			}
		})
	}
}

func TestSetParameterUnknownTrack(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)
	if err := s.SetParameter("nope", ParamVolume, 0.5); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("err = %v, want ErrUnknownTrack", err)
	}
}

func TestTogglePlaybackNotReady(t *testing.T) {
	loader := newFakeLoader()
	loader.fail["b.mp3"] = true
	s := newTestSession(t, loader)
	report := activate(t, s)

	if len(report.Failed) != 1 || report.Failed[0].TrackID != "t2" {
		t.Fatalf("report = %+v, want one failure for t2", report)
	}
	if report.Warning() == "" {
		t.Error("expected a warning message")
	}

	playing, err := s.TogglePlayback("t2")
	if !errors.Is(err, ErrTrackNotReady) || playing {
		t.Fatalf("TogglePlayback = %v, %v; want false, ErrTrackNotReady", playing, err)
	}
	if tv := trackView(t, s, "t2"); tv.IsPlaying || tv.Loaded {
		t.Errorf("t2 state changed: %+v", tv)
	}
	if s.Snapshot().Transport.State != TransportStopped {
		t.Error("transport started for a track that was not ready")
	}
}

func TestTogglePlaybackStartsTransport(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	playing, err := s.TogglePlayback("t1")
	if err != nil || !playing {
		t.Fatalf("TogglePlayback = %v, %v", playing, err)
	}
	if s.Snapshot().Transport.State != TransportStarted {
		t.Error("transport not started")
	}
	if st := s.nodes["t1"].Player.State(); st != PlayerStarted {
		t.Errorf("player state = %s", st)
	}

	playing, err = s.TogglePlayback("t1")
	if err != nil || playing {
		t.Fatalf("second TogglePlayback = %v, %v", playing, err)
	}
	if st := s.nodes["t1"].Player.State(); st != PlayerStopped {
		t.Errorf("player state = %s", st)
	}
}

func TestReplaceTrackSourceUsesNewSource(t *testing.T) {
	loader := newFakeLoader()
	s := newTestSession(t, loader)
	activate(t, s)

	if _, err := s.TogglePlayback("t2"); err != nil {
		t.Fatal(err)
	}
	s.ReplaceTrackSource("t2", Source{Ref: "/tmp/new.wav", Name: "new.wav"})

	tv := trackView(t, s, "t2")
	if tv.IsPlaying || !tv.IsUserSupplied || tv.Title != "new.wav" || tv.CurrentSource != "/tmp/new.wav" {
		t.Fatalf("after replace: %+v", tv.Track)
	}
	if tv.OriginalSource != "b.mp3" {
		t.Errorf("original source overwritten: %s", tv.OriginalSource)
	}
	if _, err := s.TogglePlayback("t2"); !errors.Is(err, ErrTrackNotReady) {
		t.Errorf("toggle before sync: err = %v, want ErrTrackNotReady", err)
	}

	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !loader.calledWith("/tmp/new.wav") {
		t.Error("new source was never loaded")
	}
	if _, err := s.TogglePlayback("t2"); err != nil {
		t.Fatal(err)
	}
	if src := s.nodes["t2"].Player.Source(); src != "/tmp/new.wav" {
		t.Errorf("player source = %s", src)
	}
}

func TestReplaceTwiceBeforeLoadCompletes(t *testing.T) {
	loader := newFakeLoader()
	gate := make(chan struct{})
	loader.gates["fileA"] = gate
	s := newTestSession(t, loader)
	activate(t, s)

	releasedA, releasedB := 0, 0
	s.ReplaceTrackSource("t2", Source{Ref: "fileA", Release: func() error { releasedA++; return nil }})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Sync(context.Background())
	}()
	for !loader.calledWith("fileA") {
		time.Sleep(time.Millisecond)
	}

	s.ReplaceTrackSource("t2", Source{Ref: "fileB", Release: func() error { releasedB++; return nil }})
	if releasedA != 1 {
		t.Errorf("fileA released %d times, want 1", releasedA)
	}

	close(gate)
	<-done

	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.TogglePlayback("t2"); err != nil {
		t.Fatal(err)
	}
	if src := s.nodes["t2"].Player.Source(); src != "fileB" {
		t.Errorf("player source = %s, want fileB", src)
	}

	s.Dispose()
	if releasedB != 1 || releasedA != 1 {
		t.Errorf("released A=%d B=%d, want 1 and 1", releasedA, releasedB)
	}
}

func TestReplaceUnknownTrackReleasesSource(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	released := false
	s.ReplaceTrackSource("missing", Source{Ref: "x", Release: func() error { released = true; return nil }})
	if !released {
		t.Error("source for unknown track was not released")
	}
}

func TestPlayAllThenStopAll(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	started, err := s.PlayAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(started) != 3 {
		t.Errorf("started = %v, want 3 tracks", started)
	}
	for _, tv := range s.Snapshot().Tracks {
		if !tv.IsPlaying {
			t.Errorf("%s not playing", tv.ID)
		}
	}

	s.StopAll()
	snap := s.Snapshot()
	if snap.Transport.State != TransportStopped {
		t.Error("transport still started")
	}
	for _, tv := range snap.Tracks {
		if tv.IsPlaying {
			t.Errorf("%s still playing", tv.ID)
		}
		if st := s.nodes[tv.ID].Player.State(); st != PlayerStopped {
			t.Errorf("%s player state = %s", tv.ID, st)
		}
	}
}

func TestPlayAllSkipsPlayingAndUnloaded(t *testing.T) {
	loader := newFakeLoader()
	loader.fail["c.mp3"] = true
	s := newTestSession(t, loader)
	activate(t, s)

	if _, err := s.TogglePlayback("t1"); err != nil {
		t.Fatal(err)
	}
	started, err := s.PlayAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(started) != 1 || started[0] != "t2" {
		t.Errorf("started = %v, want [t2]", started)
	}
}

func TestStopTrackIdempotent(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	if _, err := s.TogglePlayback("t3"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.StopTrack("t3"); err != nil {
			t.Fatalf("StopTrack #%d: %v", i+1, err)
		}
		if tv := trackView(t, s, "t3"); tv.IsPlaying {
			t.Fatalf("StopTrack #%d left track playing", i+1)
		}
	}
	if err := s.StopTrack("nope"); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("err = %v, want ErrUnknownTrack", err)
	}
}

func TestMutedTrackIsSilentInMix(t *testing.T) {
	loader := newFakeLoader()
	loader.levels["a.mp3"] = 0.1
	loader.levels["b.mp3"] = 0.2
	loader.levels["c.mp3"] = 0.4
	s := newTestSession(t, loader)
	activate(t, s)

	if _, err := s.PlayAll(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParameter("t2", ParamMuted, true); err != nil {
		t.Fatal(err)
	}

	out, err := s.Render(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 50 {
		t.Fatalf("rendered %d frames, want 50", len(out))
	}
	want := 0.75 * (0.75*0.1 + 0.75*0.4)
	if math.Abs(float64(out[0])-want) > 1e-6 {
		t.Errorf("first sample = %v, want %v", out[0], want)
	}
	for _, tv := range s.Snapshot().Tracks {
		if !tv.IsPlaying {
			t.Errorf("%s stopped by mute", tv.ID)
		}
	}
}

func TestRenderRequiresActiveSession(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	if _, err := s.Render(time.Second); !errors.Is(err, ErrNotActive) {
		t.Errorf("err = %v, want ErrNotActive", err)
	}
}

func TestRenderRejectsBadDurations(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	tests := []struct {
		name string
		d    time.Duration
	}{
		{"negative", -time.Second},
		{"zero", 0},
		{"below one sample", 100 * time.Microsecond},
		{"too long", MaxRenderDuration + time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Render(tt.d); !errors.Is(err, ErrInvalidDuration) {
				t.Errorf("Render(%s) err = %v, want ErrInvalidDuration", tt.d, err)
			}
		})
	}

	enc := &fakeEncoder{}
	if err := s.Bounce(context.Background(), enc, -time.Second, "out.wav"); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("Bounce err = %v, want ErrInvalidDuration", err)
	}
	if enc.output != "" {
		t.Error("encoder called for an invalid duration")
	}
}

type fakeEncoder struct {
	samples    int
	sampleRate int
	output     string
}

func (f *fakeEncoder) EncodePCM(_ context.Context, samples []float32, sampleRate int, outputFile string) error {
	f.samples, f.sampleRate, f.output = len(samples), sampleRate, outputFile
	return nil
}

func TestBounce(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)
	enc := &fakeEncoder{}
	if err := s.Bounce(context.Background(), enc, 2*time.Second, "out.wav"); err != nil {
		t.Fatal(err)
	}
	if enc.samples != 2000 || enc.sampleRate != 1000 || enc.output != "out.wav" {
		t.Errorf("encoder got %+v", enc)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	released := 0
	s.ReplaceTrackSource("t1", Source{Ref: "tmp", Release: func() error { released++; return nil }})
	if _, err := s.PlayAll(); err != nil {
		t.Fatal(err)
	}

	s.Dispose()
	s.Dispose()

	if released != 1 {
		t.Errorf("released %d times, want 1", released)
	}
	if len(s.nodes) != 0 {
		t.Errorf("%d node sets left after dispose", len(s.nodes))
	}
	if _, err := s.TogglePlayback("t2"); !errors.Is(err, ErrNotActive) {
		t.Errorf("toggle after dispose: %v", err)
	}
	if _, err := s.Activate(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Errorf("activate after dispose: %v", err)
	}
}

func TestMarkSourceChangedRebuildsOnSync(t *testing.T) {
	loader := newFakeLoader()
	s := newTestSession(t, loader)
	activate(t, s)

	if _, err := s.TogglePlayback("t1"); err != nil {
		t.Fatal(err)
	}
	oldPlayer := s.nodes["t1"].Player

	if n := s.MarkSourceChanged("a.mp3"); n != 1 {
		t.Fatalf("MarkSourceChanged = %d, want 1", n)
	}
	select {
	case <-s.Changes():
	default:
		t.Error("no change notification after MarkSourceChanged")
	}
	if n := s.MarkSourceChanged("missing.mp3"); n != 0 {
		t.Errorf("MarkSourceChanged(missing) = %d, want 0", n)
	}
	select {
	case <-s.Changes():
		t.Error("notification sent for an unmatched source")
	default:
	}
	if tv := trackView(t, s, "t1"); tv.IsPlaying || tv.Loaded {
		t.Errorf("t1 after change = %+v", tv)
	}
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.nodes["t1"].Player == oldPlayer {
		t.Error("graph was not rebuilt")
	}
	if !oldPlayer.disposed {
		t.Error("old player not disposed")
	}
	if tv := trackView(t, s, "t1"); !tv.Loaded {
		t.Error("t1 not reloaded")
	}
}

func TestSyncAppliesParametersWithoutRebuild(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	activate(t, s)

	before := s.nodes["t1"]
	if err := s.SetParameter("t1", ParamVolume, 0.2); err != nil {
		t.Fatal(err)
	}
	report, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Loaded) != 0 {
		t.Errorf("sync reloaded %v", report.Loaded)
	}
	if s.nodes["t1"] != before {
		t.Error("parameter change rebuilt the graph")
	}
	if before.Gain.gain != 0.2 {
		t.Errorf("gain = %v, want 0.2", before.Gain.gain)
	}
}

func TestOperationsBeforeActivate(t *testing.T) {
	s := newTestSession(t, newFakeLoader())
	if _, err := s.PlayAll(); !errors.Is(err, ErrNotActive) {
		t.Errorf("PlayAll: %v", err)
	}
	if _, err := s.Sync(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("Sync: %v", err)
	}
	s.StopAll()
}
