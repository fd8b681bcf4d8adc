package procedure

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a Matcher whenever definition files in its directory change.
type Watcher struct {
	dir     string
	matcher *Matcher
	logger  zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	// debounce collapses editor write bursts into one reload.
	debounce time.Duration
	reloaded chan struct{}
}

// NewWatcher starts watching dir. The directory must exist.
func NewWatcher(dir string, matcher *Matcher, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		matcher:  matcher,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
		debounce: 100 * time.Millisecond,
		reloaded: make(chan struct{}, 1),
	}
	w.wg.Add(1)
	go w.watch()
	return w, nil
}

// Reloaded signals after each reload attempt.
func (w *Watcher) Reloaded() <-chan struct{} {
	return w.reloaded
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsDefinitionFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("procedure watcher error")
		}
	}
}

// reload keeps the previous set when the directory no longer parses.
func (w *Watcher) reload() {
	procs, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Error().Err(err).Msg("procedure reload failed, keeping previous set")
	} else {
		w.matcher.Replace(procs)
		w.logger.Info().Int("procedures", len(procs)).Msg("procedures reloaded")
	}
	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
