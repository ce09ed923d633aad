package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SpoolFile copies src into a new temp file under dir (created if needed)
// and returns its path. The file keeps the extension of name so ffmpeg can
// pick a demuxer. The caller removes the file.
func SpoolFile(dir, prefix, name string, src io.Reader) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create spool dir: %w", err)
		}
	}
	f, err := os.CreateTemp(dir, prefix+"*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}
