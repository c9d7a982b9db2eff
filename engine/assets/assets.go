package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/meshforge/engine/core"
)

var ErrWatcherClosed = errors.New("asset watcher already closed")

// AssetManager watches model directories and collects the model files that
// changed on disk. The fsnotify goroutine only records paths; the render
// thread picks them up with PollChanged.
type AssetManager struct {
	fsnotify *fsnotify.Watcher

	mutex    sync.Mutex
	pending  map[string]struct{}
	isClosed bool

	done chan struct{}
	wg   sync.WaitGroup
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		fsnotify: fsWatch,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	am.wg.Add(1)
	go am.start()
	return am, nil
}

// Watch starts watching dir and all of its sub-directories.
func (am *AssetManager) Watch(dir string) error {
	am.mutex.Lock()
	closed := am.isClosed
	am.mutex.Unlock()
	if closed {
		return ErrWatcherClosed
	}
	return am.watchRecursive(dir)
}

// PollChanged returns the model files changed since the last call, sorted.
func (am *AssetManager) PollChanged() []string {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if len(am.pending) == 0 {
		return nil
	}
	out := make([]string, 0, len(am.pending))
	for p := range am.pending {
		out = append(out, p)
	}
	am.pending = make(map[string]struct{})
	sort.Strings(out)
	return out
}

// Close stops the watcher goroutine. Safe to call more than once.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch new directory '%s': %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) handleFileEvent(path string) {
	model, ok := ModelPathFor(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	am.pending[model] = struct{}{}
	core.LogDebug("model changed on disk: %s", model)
}

// ModelPathFor maps a changed file to the model file that must be reloaded.
// Material libraries map to the .obj with the same name.
func ModelPathFor(path string) (string, bool) {
	path = filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return path, true
	case ".mtl":
		return strings.TrimSuffix(path, filepath.Ext(path)) + ".obj", true
	default:
		return "", false
	}
}
