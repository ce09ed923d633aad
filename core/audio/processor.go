package audio

import "context"

// Processor decodes and encodes audio through an external transcoder.
type Processor interface {
	DecodePCM(ctx context.Context, input string, sampleRate int) ([]float32, error)
	EncodePCM(ctx context.Context, samples []float32, sampleRate int, outputFile string) error
	GetAudioDuration(ctx context.Context, inputFile string) (float32, error)
}
