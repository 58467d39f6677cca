// Package render loads outbound message templates and renders them by name.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Renderer renders named templates from a directory. Render is safe for
// concurrent use; Watch swaps the template set atomically on file changes.
type Renderer struct {
	dir string
	log *slog.Logger

	mu  sync.RWMutex
	tpl *template.Template
}

// New parses every *.tmpl file in dir.
func New(dir string, log *slog.Logger) (*Renderer, error) {
	if log == nil {
		log = slog.Default()
	}

	tpl, err := parseDir(dir)
	if err != nil {
		return nil, err
	}

	return &Renderer{dir: dir, log: log, tpl: tpl}, nil
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}

	return buf.String(), nil
}

// Watch reloads the template directory whenever its contents change, until
// ctx is canceled. A reload failure keeps the previous template set.
func (r *Renderer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			tpl, err := parseDir(r.dir)
			if err != nil {
				r.log.Error("template reload failed", "dir", r.dir, "error", err)
				continue
			}

			r.mu.Lock()
			r.tpl = tpl
			r.mu.Unlock()
			r.log.Info("templates reloaded", "dir", r.dir)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error("template watcher error", "error", err)
		}
	}
}

func parseDir(dir string) (*template.Template, error) {
	tpl, err := template.ParseGlob(filepath.Join(dir, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("parse templates in %q: %w", dir, err)
	}

	return tpl, nil
}
