package storage

import (
	"strings"
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestAudioObjectKey(t *testing.T) {
	key := AudioObjectKey(42, "My Song.MP3")
	if !strings.HasPrefix(key, "uploads/42/") || !strings.HasSuffix(key, ".mp3") {
		t.Errorf("key = %q", key)
	}
	if key == AudioObjectKey(42, "My Song.MP3") {
		t.Error("keys for two uploads collide")
	}
}

func TestAudioContentType(t *testing.T) {
	tests := map[string]string{
		"a.mp3":  "audio/mpeg",
		"b.WAV":  "audio/wav",
		"c.m4a":  "audio/mp4",
		"d.bin":  "application/octet-stream",
		"noext":  "application/octet-stream",
		"e.webm": "audio/webm",
	}
	for name, want := range tests {
		if got := AudioContentType(name); got != want {
			t.Errorf("AudioContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestBucketStatsAdd(t *testing.T) {
	stats := &BucketStats{ByType: make(map[string]int64)}
	now := time.Now()
	stats.add(ObjectInfo{Key: "uploads/1/a.mp3", Size: 10, LastModified: now})
	stats.add(ObjectInfo{Key: "covers/x.png", Size: 5, LastModified: now.Add(-time.Hour)})

	if stats.TotalObjects != 2 || stats.TotalSize != 15 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.LastModified.Equal(now) {
		t.Errorf("LastModified = %v", stats.LastModified)
	}
	if stats.ByType["audio"] != 10 || stats.ByType["image"] != 5 {
		t.Errorf("ByType = %v", stats.ByType)
	}
}

func TestNewAudioStoreWithoutClient(t *testing.T) {
	minioClient = nil
	if NewAudioStore() != nil {
		t.Error("expected nil store without a client")
	}
}
