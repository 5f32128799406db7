package catalog

import (
	"path/filepath"
	"sync"
	"time"

	"ability-server/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher следит за файлом каталога и присылает заново разобранный каталог
// после каждого сохранения. Невалидный файл уходит в Errors, старый каталог
// при этом продолжает работать.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	Updates chan *Catalog
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

// NewWatcher подписывается на каталог файла (редакторы часто пишут через rename).
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		path:    abs,
		Updates: make(chan *Catalog, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

// settleDelay - сколько ждать тишины после последнего события перед перечиткой.
const settleDelay = 100 * time.Millisecond

func (w *Watcher) run() {
	log := logger.For("catalog_watch").WithField("path", w.path)

	// Запись файла приходит серией событий (truncate + write), читаем после последнего
	var settle <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			settle = time.After(settleDelay)
		case <-settle:
			settle = nil

			c, err := Load(w.path)
			if err != nil {
				log.WithError(err).Warn("Catalog reload rejected")
				w.sendErr(err)
				continue
			}
			log.Info("Catalog reloaded")

			// Держим только самый свежий каталог
			select {
			case <-w.Updates:
			default:
			}
			w.Updates <- c
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}
