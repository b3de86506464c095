package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/finsy-project/finsy-go/internal/flog"
)

// Watch watches the directory containing path (and, if cfg names
// pipeline or TLS files outside that directory, their directories too)
// and republishes a freshly reloaded *Config on the returned channel
// whenever any watched file changes. The channel is closed when ctx is
// cancelled.
//
// This realizes the config/pipeline hot-reload behavior of finsy's
// Python controller (restart-on-SIGHUP with a reloaded switch list) as
// a native Go idiom: an fsnotify watcher feeding a channel, the way a
// long-running supervisor can re-Dial a switch whose pipeline binary or
// certificate rotated without a full process restart.
func Watch(ctx context.Context, path string) (<-chan *Config, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := map[string]bool{filepath.Dir(path): true}
	if cfg, err := Load(path); err == nil {
		for _, sw := range cfg.Switches {
			addWatchDir(dirs, sw.TLS.CAFile)
			addWatchDir(dirs, sw.TLS.CertFile)
			addWatchDir(dirs, sw.TLS.KeyFile)
			if sw.Pipeline != nil {
				addWatchDir(dirs, sw.Pipeline.P4InfoFile)
				addWatchDir(dirs, sw.Pipeline.DeviceConfig)
			}
		}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			flog.Warn("config: failed to watch directory", "dir", dir, "err", err)
		}
	}

	out := make(chan *Config)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					flog.Warn("config: reload failed, keeping previous config", "path", path, "err", err)
					continue
				}
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				flog.Warn("config: watcher error", "err", err)
			}
		}
	}()
	return out, nil
}

func addWatchDir(dirs map[string]bool, file string) {
	if file == "" {
		return
	}
	dirs[filepath.Dir(file)] = true
}
