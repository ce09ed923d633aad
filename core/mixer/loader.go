package mixer

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"EchoCanvas/core/audio"
)

// BufferLoader fetches and decodes a source reference.
type BufferLoader interface {
	Load(ctx context.Context, source string) (*Buffer, error)
}

type pcmDecoder interface {
	DecodePCM(ctx context.Context, input string, sampleRate int) ([]float32, error)
}

// FFmpegLoader decodes local paths and URLs through ffmpeg.
type FFmpegLoader struct {
	decoder    pcmDecoder
	sampleRate int
}

func NewFFmpegLoader(decoder pcmDecoder) *FFmpegLoader {
	return &FFmpegLoader{decoder: decoder, sampleRate: audio.DefaultSampleRate}
}

func (l *FFmpegLoader) Load(ctx context.Context, source string) (*Buffer, error) {
	samples, err := l.decoder.DecodePCM(ctx, source, l.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	return &Buffer{Samples: samples, SampleRate: l.sampleRate}, nil
}

// Source is a replacement audio source for a track. Release, when set,
// frees the temporary resource backing Ref.
type Source struct {
	Ref     string
	Name    string
	Release func() error
}

// SpoolUpload writes uploaded bytes to a temp file and returns a Source
// whose Release removes it.
func SpoolUpload(dir, name string, data []byte) (Source, error) {
	path, err := audio.SpoolFile(dir, "mixer-", name, bytes.NewReader(data))
	if err != nil {
		return Source{}, err
	}
	return Source{
		Ref:  path,
		Name: name,
		Release: func() error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		},
	}, nil
}
