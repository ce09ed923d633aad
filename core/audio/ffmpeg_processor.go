package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"EchoCanvas/logger"
)

// DefaultSampleRate is the rate every decoded buffer is resampled to.
const DefaultSampleRate = 44100

// FFmpegProcessor implements the Processor interface using ffmpeg.
type FFmpegProcessor struct {
	ffmpegPath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
func NewFFmpegProcessor(ffmpegPath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath}
}

func (p *FFmpegProcessor) ffprobePath() string {
	return strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// DecodePCM decodes a local file or an HTTP(S) URL to mono float32 PCM.
func (p *FFmpegProcessor) DecodePCM(ctx context.Context, input string, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-v", "error",
		"-i", input,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w (%s)", err, stderr.String())
	}

	data, err := io.ReadAll(stdout)
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed for %s: %w\nFFmpeg Error: %s", input, err, stderr.String())
	}

	samples := BytesToSamples(data)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio data decoded from %s", input)
	}
	return samples, nil
}

// EncodePCM writes mono float32 PCM to outputFile; the container is picked
// by ffmpeg from the file extension.
func (p *FFmpegProcessor) EncodePCM(ctx context.Context, samples []float32, sampleRate int, outputFile string) error {
	if dir := filepath.Dir(outputFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	args := []string{
		"-y",
		"-f", "f32le", "-ar", strconv.Itoa(sampleRate), "-ac", "1",
		"-i", "-",
		outputFile,
	}
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(SamplesToBytes(samples))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("Executing FFmpeg encode",
		logger.String("cmd", p.ffmpegPath+" "+strings.Join(args, " ")),
		logger.Int("samples", len(samples)))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode failed for %s: %w\nFFmpeg Error: %s", outputFile, err, stderr.String())
	}
	return nil
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetAudioDuration uses ffprobe to get the duration of an audio file in seconds.
func (p *FFmpegProcessor) GetAudioDuration(ctx context.Context, inputFile string) (float32, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}
	return parseDuration(out.Bytes())
}

func parseDuration(raw []byte) (float32, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(raw, &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output: %s", string(raw))
	}
	duration, err := strconv.ParseFloat(probeData.Format.Duration, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}
	return float32(duration), nil
}

// BytesToSamples interprets little-endian f32le bytes. A trailing partial
// sample is dropped.
func BytesToSamples(data []byte) []float32 {
	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return samples
}

// SamplesToBytes is the inverse of BytesToSamples.
func SamplesToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(s))
	}
	return out
}
