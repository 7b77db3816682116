// Package registry implements §9's "process-wide registry with explicit
// init()/shutdown()" redesign note: logging and the codec table live here
// instead of behind package-level globals. MediaStream does not hold a
// *Registry: its Config takes the codec and logger directly, and
// cmd/mediastream-demo registers its codec here and passes it in itself.
package registry

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/coresip/mediacore/pkg/codecs"
)

var ErrAlreadyInitialized = errors.New("registry: already initialized")
var ErrShutdown = errors.New("registry: shutdown already called")

// Registry is the process-wide set of shared, mutable resources a
// MediaStream needs but does not own exclusively: the logger and the codec
// table. It replaces package-level globals (§9).
type Registry struct {
	mu       sync.RWMutex
	logger   *log.Logger
	codecs   *codecs.Registry
	shutdown bool
}

// New constructs a Registry. logger may be nil, in which case
// log.Default() is used.
func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		logger: logger,
		codecs: codecs.NewRegistry(),
	}
}

// Logger returns the shared logger; Shutdown does not change it.
func (r *Registry) Logger() *log.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// Codecs returns the shared codec table.
func (r *Registry) Codecs() *codecs.Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codecs
}

// RegisterCodec binds a payload type in the shared codec table; safe to
// call concurrently with lookups from running MediaStreams.
func (r *Registry) RegisterCodec(pt uint8, codec codecs.Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return ErrShutdown
	}
	r.codecs.Register(pt, codec)
	return nil
}

// Shutdown marks the registry as no longer accepting new registrations.
// Existing MediaStream instances may continue to use their already-
// resolved codec handles; Shutdown does not invalidate them.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = true
}
