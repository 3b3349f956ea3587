package config

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefinitionsDebounce groups bursts of definition file events into one
// reload.
const DefinitionsDebounce = 150 * time.Millisecond

// Holder provides thread-safe access to configuration with hot reload
// support. Besides the config file it watches the definitions directory and
// notifies listeners when definition files change.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	onDefs   []func()
	debounce *time.Timer
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnDefinitionsChange registers a callback to be called when files under
// the definitions directory change or SIGHUP is received.
func (h *Holder) OnDefinitionsChange(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDefs = append(h.onDefs, fn)
}

// NotifyDefinitions runs the definition listeners.
func (h *Holder) NotifyDefinitions() {
	h.mu.RLock()
	listeners := append([]func(){}, h.onDefs...)
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// Watch starts watching the config file and, when definitions.watch is
// set, every directory under definitions.dir.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	cfg := h.Get()
	if cfg.Definitions.Watch {
		if err := h.watchTree(cfg.Definitions.Dir); err != nil {
			watcher.Close()
			return err
		}
	}

	go h.watchLoop()

	h.logger.Info().
		Str("path", h.path).
		Bool("definitions", cfg.Definitions.Watch).
		Msg("watching for changes")
	return nil
}

func (h *Holder) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk definitions: %w", err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := h.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// WatchSignals starts listening for SIGHUP to reload the config and the
// definitions.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
				h.NotifyDefinitions()
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
		h.mu.Lock()
		if h.debounce != nil {
			h.debounce.Stop()
		}
		h.mu.Unlock()
	})
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			h.handle(event)

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) handle(event fsnotify.Event) {
	if name, err := filepath.Abs(event.Name); err == nil && name == h.path {
		// React to write or create (atomic save = create)
		if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("config file changed")
			if err := h.Reload(); err != nil {
				h.logger.Error().Err(err).Msg("file watch reload failed")
			}
		}
		return
	}

	if !h.Get().Definitions.Watch {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := h.watchTree(event.Name); err != nil {
				h.logger.Error().Err(err).Msg("watch new definitions directory")
			}
			h.scheduleDefinitions()
			return
		}
	}
	if !IsDefinitionFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		h.logger.Debug().
			Str("event", event.Op.String()).
			Str("file", event.Name).
			Msg("definition file changed")
		h.scheduleDefinitions()
	}
}

func (h *Holder) scheduleDefinitions() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.debounce != nil {
		h.debounce.Stop()
	}
	h.debounce = time.AfterFunc(DefinitionsDebounce, h.NotifyDefinitions)
}

// IsDefinitionFile reports whether path names a YAML definition file.
func IsDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if old.Stdlib.BcryptCost != new.Stdlib.BcryptCost {
		h.logger.Info().
			Int("old", old.Stdlib.BcryptCost).
			Int("new", new.Stdlib.BcryptCost).
			Msg("bcrypt cost changed")
	}

	for _, field := range changedNonReloadable(old, new) {
		h.logger.Warn().Str("field", field).Msg("setting changed but requires a restart")
	}
}

func changedNonReloadable(old, new *Config) []string {
	var out []string
	if old.Server.Host != new.Server.Host {
		out = append(out, "server.host")
	}
	if old.Server.Port != new.Server.Port {
		out = append(out, "server.port")
	}
	if old.Definitions.Dir != new.Definitions.Dir {
		out = append(out, "definitions.dir")
	}
	if old.History.Driver != new.History.Driver {
		out = append(out, "history.driver")
	}
	if old.History.DSN != new.History.DSN {
		out = append(out, "history.dsn")
	}
	return out
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"stdlib.bcrypt_cost",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"definitions.dir",
		"history.driver",
		"history.dsn",
	}
}
