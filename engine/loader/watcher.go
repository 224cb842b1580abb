package loader

import (
	"context"
	"log"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/fsnotify/fsnotify"
)

func (l *loader) Watch(ctx context.Context, manifestPath string, onReload func(model.Model, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Directories are watched rather than files so editors that save by rename are still seen.
	files := map[string]struct{}{}
	dirs := map[string]struct{}{}
	track := func() {
		paths, err := manifestFiles(manifestPath)
		if err != nil {
			return
		}
		clear(files)
		for _, p := range paths {
			files[p] = struct{}{}
			dir := filepath.Dir(p)
			if _, ok := dirs[dir]; ok {
				continue
			}
			if err := w.Add(dir); err == nil {
				dirs[dir] = struct{}{}
			}
		}
	}
	reload := func() {
		l.Invalidate(manifestPath)
		m, err := l.LoadModel(manifestPath)
		track()
		if l.verbose {
			log.Printf("[Loader] reloaded %s (err: %v)", manifestPath, err)
		}
		onReload(m, err)
	}

	reload()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return ctx.Err()
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if _, ok := files[abs]; ok {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return ctx.Err()
			}
			onReload(nil, err)
		}
	}
}

// manifestFiles returns the absolute paths of a manifest and every asset it names.
func manifestFiles(manifestPath string) ([]string, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}
	manifest, err := readManifest(abs)
	if err != nil {
		return []string{abs}, nil
	}
	dir := filepath.Dir(abs)
	paths := []string{abs, resolvePath(dir, manifest.Skeleton)}
	for _, c := range manifest.Clips {
		paths = append(paths, resolvePath(dir, c))
	}
	return paths, nil
}
