package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"polarconv/internal/anvil"
	"polarconv/internal/config"
	"polarconv/internal/convert"
	"polarconv/internal/logging"
	"polarconv/internal/polar"
	"polarconv/internal/world"
)

// ErrBusy is returned by Start when another run holds the backend lock.
var ErrBusy = errors.New("backend is busy with another conversion")

// Lifecycle starts Handles from configuration.
type Lifecycle struct {
	lockPath string
	options  polar.Options
	logger   *slog.Logger
}

// New validates the encoder settings in cfg and returns a Lifecycle.
func New(cfg *config.Config, logger *slog.Logger) (*Lifecycle, error) {
	if cfg == nil {
		return nil, errors.New("backend requires configuration")
	}
	compression, err := polar.ParseCompression(cfg.Convert.Compression)
	if err != nil {
		return nil, fmt.Errorf("convert.compression: %w", err)
	}
	level, err := polar.ParseLevel(cfg.Convert.ZstdLevel)
	if err != nil {
		return nil, fmt.Errorf("convert.zstd_level: %w", err)
	}
	return &Lifecycle{
		lockPath: cfg.LockPath(),
		options:  polar.Options{Compression: compression, Level: level},
		logger:   logging.NewComponentLogger(logger, "backend"),
	}, nil
}

// LockPath returns the lock file guarding the backend.
func (l *Lifecycle) LockPath() string {
	return l.lockPath
}

// Start acquires the backend lock and brings up the registry, reader, and
// encoder. On failure everything acquired so far is released.
func (l *Lifecycle) Start(ctx context.Context) (convert.Runtime, error) {
	handle, err := l.start(ctx)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (l *Lifecycle) start(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(l.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrBusy, l.lockPath)
	}

	encoder, err := polar.NewEncoder(l.options)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	logger := logging.WithContext(ctx, l.logger)
	registry := world.NewRegistry()
	handle := &Handle{
		lock:     lock,
		registry: registry,
		reader:   anvil.NewReader(registry, logger),
		encoder:  encoder,
		logger:   logger,
		started:  time.Now(),
	}
	logger.Debug("backend started",
		logging.String("lock", l.lockPath),
		logging.String("compression", l.options.Compression.String()),
	)
	return handle, nil
}

// Handle is a running backend.
type Handle struct {
	lock     *flock.Flock
	registry *world.Registry
	reader   *anvil.Reader
	encoder  *polar.Encoder
	logger   *slog.Logger
	started  time.Time

	once    sync.Once
	stopErr error
}

// Reader returns the Anvil reader bound to this handle's registry.
func (h *Handle) Reader() convert.ChunkSourceReader {
	return h.reader
}

// Encoder returns the Polar encoder owned by this handle.
func (h *Handle) Encoder() convert.ContainerEncoder {
	return h.encoder
}

// Registry exposes the block-state registry for diagnostics.
func (h *Handle) Registry() *world.Registry {
	return h.registry
}

// Stop releases the encoder, the registry, and the lock. Only the first call
// does any work; later calls return the first call's error.
func (h *Handle) Stop() error {
	h.once.Do(func() {
		stats := h.registry.Stats()
		var errs []error
		if err := h.encoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder: %w", err))
		}
		h.registry.Close()
		if err := h.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
		h.stopErr = errors.Join(errs...)
		h.logger.Debug("backend stopped",
			logging.Int("block_states", stats.BlockStates),
			logging.Int("biomes", stats.Biomes),
			logging.Duration("uptime", time.Since(h.started)),
		)
	})
	return h.stopErr
}
