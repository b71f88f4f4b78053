package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory builds a Driver from configuration. Driver packages register one in
// their init function.
type Factory func(ctx context.Context, cfg Config, log *zap.Logger) (Driver, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a driver available to Open under name.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers lists the registered provider names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the Driver selected by cfg.Provider. The desired driver package
// must be imported (e.g. _ "objstore/core/storage/s3") so its factory is
// registered. The returned Driver must be closed by the caller.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Driver, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (registered: %v)", cfg.Provider, Providers())
	}

	l := log.With(zap.String("component", "storage"), zap.String("provider", cfg.Provider))
	l.Info("Initializing storage", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
	return f(ctx, cfg, l)
}

// Use opens a Driver, passes it to fn and closes it on every exit path.
func Use(ctx context.Context, cfg Config, log *zap.Logger, fn func(Driver) error) (err error) {
	d, err := Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("storage: close: %w", cerr)
		}
	}()
	return fn(d)
}
