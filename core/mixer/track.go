package mixer

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Param names a per-track mixer control.
type Param string

const (
	ParamVolume        Param = "volume"
	ParamDelayMix      Param = "delayMix"
	ParamDelayTime     Param = "delayTime"
	ParamDelayFeedback Param = "delayFeedback"
	ParamMuted         Param = "isMuted"
	ParamLoop          Param = "loop"
)

const (
	// MaxDelayFeedback keeps the delay loop from self-oscillating.
	MaxDelayFeedback = 0.95
	// MaxDelayTime is the longest delay in seconds.
	MaxDelayTime = 1.0

	defaultVolume        = 0.75
	defaultDelayTime     = 0.2
	defaultDelayFeedback = 0.3
)

var (
	ErrUnknownParam = errors.New("unknown mixer parameter")
	ErrInvalidValue = errors.New("invalid parameter value")
)

// Track is the user-visible state of one mixer channel.
type Track struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	OriginalSource string  `json:"originalSource"`
	CurrentSource  string  `json:"currentSource"`
	IsUserSupplied bool    `json:"isUserSupplied"`
	IsPlaying      bool    `json:"isPlaying"`
	Volume         float64 `json:"volume"`
	DelayMix       float64 `json:"delayMix"`
	DelayTime      float64 `json:"delayTime"`
	DelayFeedback  float64 `json:"delayFeedback"`
	IsMuted        bool    `json:"isMuted"`
	Loop           bool    `json:"loop"`

	// dirty forces a graph rebuild on the next sync.
	dirty bool
}

// TrackSpec seeds a track on activation.
type TrackSpec struct {
	ID     string
	Title  string
	Source string
}

// DefaultTrackSpecs are the built-in sample loops.
func DefaultTrackSpecs() []TrackSpec {
	const base = "https://cdn.jsdelivr.net/gh/Tonejs/Tone.js/examples/audio/"
	return []TrackSpec{
		{ID: "track1", Title: "Ominous Loop", Source: base + "loop/ominous.mp3"},
		{ID: "track2", Title: "Casio Synth C2", Source: base + "casio/C2.mp3"},
		{ID: "track3", Title: "Gabba Kick Loop", Source: base + "loop/gabba.mp3"},
	}
}

func newTrack(spec TrackSpec) *Track {
	return &Track{
		ID:             spec.ID,
		Title:          spec.Title,
		OriginalSource: spec.Source,
		CurrentSource:  spec.Source,
		Volume:         defaultVolume,
		DelayTime:      defaultDelayTime,
		DelayFeedback:  defaultDelayFeedback,
		Loop:           strings.Contains(spec.Title, "Loop"),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// set writes one parameter with clamping. The track is left untouched on error.
func (t *Track) set(param Param, value any) error {
	switch param {
	case ParamVolume, ParamDelayMix, ParamDelayTime, ParamDelayFeedback:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		switch param {
		case ParamVolume:
			t.Volume = clamp(f, 0, 1)
		case ParamDelayMix:
			t.DelayMix = clamp(f, 0, 1)
		case ParamDelayTime:
			t.DelayTime = clamp(f, 0, MaxDelayTime)
		case ParamDelayFeedback:
			t.DelayFeedback = clamp(f, 0, MaxDelayFeedback)
		}
	case ParamMuted, ParamLoop:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s expects a boolean, got %T", ErrInvalidValue, param, value)
		}
		if param == ParamMuted {
			t.IsMuted = b
		} else {
			t.Loop = b
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, param)
	}
	return nil
}

func toFloat(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidValue, value)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("%w: NaN", ErrInvalidValue)
	}
	return f, nil
}

// registry keeps tracks in insertion order.
type registry struct {
	order []string
	byID  map[string]*Track
}

func newRegistry() *registry {
	return &registry{byID: make(map[string]*Track)}
}

func (r *registry) add(t *Track) {
	if _, exists := r.byID[t.ID]; exists {
		return
	}
	r.order = append(r.order, t.ID)
	r.byID[t.ID] = t
}

func (r *registry) get(id string) *Track {
	return r.byID[id]
}

func (r *registry) each(fn func(*Track)) {
	for _, id := range r.order {
		fn(r.byID[id])
	}
}

func (r *registry) len() int {
	return len(r.order)
}
