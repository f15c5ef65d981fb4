// Channel registry implementation
package channel

import (
	"fmt"
	"sync"

	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
)

// Deps are the shared collaborators handed to every factory.
type Deps struct {
	HTTP   HTTPDoer
	Logger logger.Logger
}

// Factory builds the channel for config section name. The section has
// already been validated when the factory runs.
type Factory func(name string, cfg *config.Config, deps Deps) (Channel, error)

// Skipped records an enabled channel that could not be built.
type Skipped struct {
	Name string
	Err  error
}

// Registry maps config section names to channel factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Discard
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    log,
	}
}

// Register adds a factory for a config section.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("channel %s already registered", name)
	}
	r.factories[name] = factory
	r.logger.Debug("Channel factory registered", "channel", name)
	return nil
}

// Has reports whether name has a factory.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Build creates every enabled channel in notification order. A channel whose
// section is invalid or whose factory fails is skipped and reported; the
// others are still built.
func (r *Registry) Build(cfg *config.Config, deps Deps) ([]Channel, []Skipped) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if deps.Logger == nil {
		deps.Logger = r.logger
	}

	var (
		channels []Channel
		skipped  []Skipped
	)
	for _, name := range cfg.Channels.Enabled() {
		factory, ok := r.factories[name]
		if !ok {
			err := errors.Newf(errors.ErrConfigInvalid, "no factory registered for channel %q", name)
			r.logger.Error("Channel skipped", "channel", name, "error", err)
			skipped = append(skipped, Skipped{Name: name, Err: err})
			continue
		}

		if err := cfg.ValidateChannel(name); err != nil {
			r.logger.Error("Channel skipped", "channel", name, "error", err)
			skipped = append(skipped, Skipped{Name: name, Err: err})
			continue
		}

		ch, err := factory(name, cfg, deps)
		if err != nil {
			r.logger.Error("Channel skipped", "channel", name, "error", err)
			skipped = append(skipped, Skipped{Name: name, Err: err})
			continue
		}

		r.logger.Info("Channel enabled", "channel", name)
		channels = append(channels, ch)
	}
	return channels, skipped
}
