package mixer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxRenderDuration bounds a single offline render.
const MaxRenderDuration = 10 * time.Minute

var ErrInvalidDuration = errors.New("render duration out of range")

type pcmEncoder interface {
	EncodePCM(ctx context.Context, samples []float32, sampleRate int, outputFile string) error
}

// Render pulls d worth of audio through every track chain into the master
// stage. Only started players contribute; their positions advance.
func (s *Session) Render(d time.Duration) ([]float32, error) {
	if d <= 0 || d > MaxRenderDuration {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.disposed {
		return nil, ErrNotActive
	}

	frames := int(d.Seconds() * float64(s.sampleRate))
	if frames == 0 {
		return nil, fmt.Errorf("%w: %s is shorter than one sample", ErrInvalidDuration, d)
	}
	out := make([]float32, frames)

	var chains []*NodeSet
	s.tracks.each(func(t *Track) {
		if n := s.nodes[t.ID]; n != nil {
			chains = append(chains, n)
		}
	})

	for i := range out {
		var sum float64
		for _, n := range chains {
			sum += n.process()
		}
		out[i] = float32(s.master.process(sum))
	}
	return out, nil
}

// Bounce renders d of audio and encodes it to outputFile.
func (s *Session) Bounce(ctx context.Context, enc pcmEncoder, d time.Duration, outputFile string) error {
	samples, err := s.Render(d)
	if err != nil {
		return err
	}
	if err := enc.EncodePCM(ctx, samples, s.sampleRate, outputFile); err != nil {
		return fmt.Errorf("encode mixdown: %w", err)
	}
	return nil
}
