// Package config implements the BridgeProtocol configuration surface:
// defaults layered under a config file and environment variables via
// viper, with optional hot-reload through fsnotify and a generated JSON
// Schema for validating the options surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/invopop/jsonschema"
	"github.com/spf13/viper"
)

// BridgeConfig is the full bridge options surface.
type BridgeConfig struct {
	CallTimeoutMs             uint64 `mapstructure:"callTimeoutMs" json:"callTimeoutMs" jsonschema:"minimum=0"`
	BackendFailFast           bool   `mapstructure:"backendFailFast" json:"backendFailFast"`
	HeartbeatIntervalMs       uint64 `mapstructure:"heartbeatIntervalMs" json:"heartbeatIntervalMs" jsonschema:"minimum=0"`
	HeartbeatTimeoutMs        uint64 `mapstructure:"heartbeatTimeoutMs" json:"heartbeatTimeoutMs" jsonschema:"minimum=0"`
	DrainBudgetPerTick        uint16 `mapstructure:"drainBudgetPerTick" json:"drainBudgetPerTick" jsonschema:"minimum=1"`
	EmbeddedCloseIterationCap uint16 `mapstructure:"embeddedCloseIterationCap" json:"embeddedCloseIterationCap" jsonschema:"minimum=1"`
	EmbeddedCloseSettleMs     uint32 `mapstructure:"embeddedCloseSettleMs" json:"embeddedCloseSettleMs" jsonschema:"minimum=0"`
}

// Defaults returns the core-level defaults.
func Defaults() BridgeConfig {
	return BridgeConfig{
		CallTimeoutMs:             30000,
		BackendFailFast:           true,
		HeartbeatIntervalMs:       2000,
		HeartbeatTimeoutMs:        0,
		DrainBudgetPerTick:        64,
		EmbeddedCloseIterationCap: 100,
		EmbeddedCloseSettleMs:     50,
	}
}

func (c BridgeConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutMs) * time.Millisecond
}

func (c BridgeConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

func (c BridgeConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutMs) * time.Millisecond
}

func (c BridgeConfig) EmbeddedCloseSettle() time.Duration {
	return time.Duration(c.EmbeddedCloseSettleMs) * time.Millisecond
}

// Schema generates the JSON Schema for BridgeConfig so a config file
// can be validated before being merged in.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	return r.Reflect(&BridgeConfig{})
}

// Loader layers defaults -> config file -> environment, and supports an
// optional runtime setter plus fsnotify-driven hot reload of the file.
type Loader struct {
	mu      sync.RWMutex
	v       *viper.Viper
	current BridgeConfig
	watcher *fsnotify.Watcher

	onChange func(BridgeConfig)
}

// NewLoader builds a Loader seeded with Defaults, optionally merging a
// config file at path (ignored if empty or missing).
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	def := Defaults()
	v.SetDefault("callTimeoutMs", def.CallTimeoutMs)
	v.SetDefault("backendFailFast", def.BackendFailFast)
	v.SetDefault("heartbeatIntervalMs", def.HeartbeatIntervalMs)
	v.SetDefault("heartbeatTimeoutMs", def.HeartbeatTimeoutMs)
	v.SetDefault("drainBudgetPerTick", def.DrainBudgetPerTick)
	v.SetDefault("embeddedCloseIterationCap", def.EmbeddedCloseIterationCap)
	v.SetDefault("embeddedCloseSettleMs", def.EmbeddedCloseSettleMs)

	v.SetEnvPrefix("AURORAVIEW_BRIDGE")
	v.AutomaticEnv()

	l := &Loader{v: v}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) reload() error {
	var cfg BridgeConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	l.mu.Lock()
	l.current = cfg
	onChange := l.onChange
	l.mu.Unlock()
	if onChange != nil {
		onChange(cfg)
	}
	return nil
}

// Current returns the most recently loaded configuration.
func (l *Loader) Current() BridgeConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Set applies a programmatic override of the full configuration,
// overridable at runtime independent of the file/env layers.
func (l *Loader) Set(cfg BridgeConfig) {
	l.mu.Lock()
	l.current = cfg
	onChange := l.onChange
	l.mu.Unlock()
	if onChange != nil {
		onChange(cfg)
	}
}

// OnChange registers a callback invoked whenever the effective config
// changes, whether via Set or a hot-reloaded file.
func (l *Loader) OnChange(fn func(BridgeConfig)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// WatchFile starts an fsnotify watch on the backing config file so
// edits are picked up without a window restart. Safe to call at most
// once; returns nil if no config file was loaded.
func (l *Loader) WatchFile() error {
	path := l.v.ConfigFileUsed()
	if path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: fsnotify: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	l.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := l.v.ReadInConfig(); err != nil {
					continue
				}
				_ = l.reload()
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if any.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
