package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpoolFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path, err := SpoolFile(dir, "upload-", "My Song.MP3", strings.NewReader("ID3 data"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("spooled into %s, want %s", filepath.Dir(path), dir)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "upload-") || filepath.Ext(base) != ".MP3" {
		t.Errorf("name = %s", base)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID3 data" {
		t.Errorf("content = %q", data)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSpoolFileRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := SpoolFile(dir, "upload-", "a.wav", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d files left behind", len(entries))
	}
}
