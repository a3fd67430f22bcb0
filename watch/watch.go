package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/milk9111/sceneexport/batch"
	"go.uber.org/zap"
)

// Watcher reports scene files that changed in the watched directories. A
// burst of events for one path is reported once, after the path has been
// quiet for the debounce interval.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	Events   chan string
	Errors   chan error
	closeCh  chan struct{}
	stopping chan struct{}
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	pending  map[string]*pendingFire
	inflight sync.WaitGroup
}

// pendingFire is the debounce timer of one path. fire only clears the entry
// it was started for, so a timer that replaced it survives.
type pendingFire struct {
	timer *time.Timer
}

func NewWatcher(debounce time.Duration, dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher:  w,
		debounce: debounce,
		Events:   make(chan string, 16),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]*pendingFire),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		w.mu.Lock()
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = nil
		w.mu.Unlock()
		close(w.stopping)
		w.inflight.Wait()
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !batch.IsSceneFile(event.Name) {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scheduleLocked(name)
}

// scheduleLocked pushes back the timer of name. A timer that can no longer
// be stopped has already fired; it reports the earlier events and a new
// timer takes its place for this one.
func (w *Watcher) scheduleLocked(name string) {
	if w.pending == nil {
		return
	}
	if p, ok := w.pending[name]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}
	p := &pendingFire{}
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(name, p) })
	w.pending[name] = p
}

func (w *Watcher) fire(name string, p *pendingFire) {
	w.mu.Lock()
	if w.pending == nil {
		w.mu.Unlock()
		return
	}
	if w.pending[name] == p {
		delete(w.pending, name)
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	select {
	case w.Events <- name:
	case <-w.stopping:
	}
}

// FileExporter is satisfied by *batch.Exporter.
type FileExporter interface {
	ExportFile(path string) batch.Result
}

// Loop re-exports every changed scene in scope until ctx is done or the
// watcher is closed. A nil scope accepts every reported path. Failures are
// logged and never stop the loop.
func Loop(ctx context.Context, w *Watcher, exp FileExporter, scope *Scope, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-w.Events:
			if !ok {
				return
			}
			if scope != nil && !scope.Match(name) {
				logger.Debug("ignoring change", zap.String("file", name))
				continue
			}
			logger.Debug("scene changed", zap.String("file", name))
			exp.ExportFile(filepath.Clean(name))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

// Scope is the set of scene files a watch covers. A directory argument
// covers every scene in it; a file argument covers only that file, although
// its whole directory has to be watched. Paths under an ignored directory
// (the export directory) never match.
type Scope struct {
	dirs   []string
	whole  map[string]bool
	files  map[string]bool
	ignore []string
}

func NewScope(paths []string, isDir func(string) bool, ignore ...string) *Scope {
	s := &Scope{whole: make(map[string]bool), files: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		d := absPath(p)
		if isDir(p) {
			s.whole[d] = true
		} else {
			s.files[d] = true
			d = filepath.Dir(d)
		}
		if !seen[d] {
			seen[d] = true
			s.dirs = append(s.dirs, d)
		}
	}
	for _, dir := range ignore {
		if strings.TrimSpace(dir) != "" {
			s.ignore = append(s.ignore, absPath(dir))
		}
	}
	return s
}

// Dirs returns the distinct directories to hand to the watcher.
func (s *Scope) Dirs() []string { return s.dirs }

func (s *Scope) Match(path string) bool {
	p := absPath(path)
	for _, dir := range s.ignore {
		if within(dir, p) {
			return false
		}
	}
	return s.files[p] || s.whole[filepath.Dir(p)]
}

// Overlap returns a watched directory that lies inside an ignored one.
// Nothing in such a directory could ever be exported.
func (s *Scope) Overlap() (string, bool) {
	for _, d := range s.dirs {
		for _, dir := range s.ignore {
			if within(dir, d) {
				return d, true
			}
		}
	}
	return "", false
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
