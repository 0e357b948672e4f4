package wikiengine

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reports changes made to a page directory outside the app, such as
// pages copied in by hand or removed by another process.
type Watcher struct {
	fs       *fsnotify.Watcher
	log      *logrus.Entry
	onChange func(name string)
	done     chan struct{}
}

// WatchDir starts watching dir, creating it first if needed. onChange runs on
// the watcher's goroutine for every create, write, remove or rename.
func WatchDir(dir string, log *logrus.Entry, onChange func(name string)) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		fs:       fw,
		log:      log.WithField("dir", dir),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.log.WithField("event", ev.Op.String()).Debugf("page directory changed: %s", ev.Name)
			w.onChange(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("page directory watch error")
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
