package ai

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid audio data URI")

// extractJSON decodes the first JSON object in content into dst. Models
// sometimes wrap the object in prose or markdown fences.
func extractJSON(content string, dst interface{}) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no JSON object in reply", ErrEmptyOutput)
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), dst); err != nil {
		return fmt.Errorf("failed to parse model reply: %w", err)
	}
	return nil
}

// ParseDataURI splits "data:<mime>;base64,<payload>" and decodes the payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || mime == "" {
		return "", nil, fmt.Errorf("%w: expected <mime>;base64", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	return mime, data, nil
}

// audioFormat maps a MIME type to the input_audio format name.
func audioFormat(mime string) string {
	switch {
	case strings.Contains(mime, "wav"):
		return "wav"
	case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
		return "mp3"
	default:
		return strings.TrimPrefix(mime, "audio/")
	}
}
