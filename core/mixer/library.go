package mixer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"EchoCanvas/logger"

	"github.com/fsnotify/fsnotify"
)

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".m4a": true, ".aac": true,
}

// settleDelay is how long a file must stay quiet before a change is applied.
const settleDelay = 200 * time.Millisecond

// Library serves default track sources, optionally from a local sample
// directory that is watched for changes.
type Library struct {
	dir string

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir, sessions: make(map[*Session]struct{})}
}

// TrackSpecs returns the default tracks. Audio files in the sample directory,
// sorted by name, replace the built-in sources in order.
func (l *Library) TrackSpecs() []TrackSpec {
	specs := DefaultTrackSpecs()
	files, err := l.samples()
	if err != nil {
		logger.Warn("[Mixer] cannot read sample directory, using built-in samples",
			logger.String("dir", l.dir), logger.ErrorField(err))
		return specs
	}
	for i := 0; i < len(specs) && i < len(files); i++ {
		name := filepath.Base(files[i])
		specs[i].Source = files[i]
		specs[i].Title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return specs
}

func (l *Library) samples() ([]string, error) {
	if l.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(l.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, abs)
	}
	sort.Strings(files)
	return files, nil
}

// Register subscribes a live session to sample changes.
func (l *Library) Register(s *Session) {
	l.mu.Lock()
	l.sessions[s] = struct{}{}
	l.mu.Unlock()
}

func (l *Library) Unregister(s *Session) {
	l.mu.Lock()
	delete(l.sessions, s)
	l.mu.Unlock()
}

// Changed marks tracks backed by path dirty in every registered session.
func (l *Library) Changed(path string) int {
	l.mu.Lock()
	sessions := make([]*Session, 0, len(l.sessions))
	for s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	total := 0
	for _, s := range sessions {
		total += s.MarkSourceChanged(path)
	}
	return total
}

// Watch follows the sample directory until ctx is done. Without a directory
// it returns immediately.
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	logger.Info("[Mixer] watching sample directory", logger.String("dir", l.dir))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !audioExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			pending[abs] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[Mixer] sample watcher error", logger.ErrorField(err))

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					continue
				}
				delete(pending, path)
				if n := l.Changed(path); n > 0 {
					logger.Info("[Mixer] sample changed, tracks flagged for rebuild",
						logger.String("path", path), logger.Int("tracks", n))
				}
			}
		}
	}
}
