package backend

import (
	"context"
	"errors"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/config"
	"financas/internal/services"
	"financas/internal/storage"
)

// Backend bundles the infrastructure the API server runs on.
type Backend struct {
	Store   *storage.Repository
	Reports cache.Reports
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP *amqp.Client

	checks   map[string]CheckFunc
	cleanups []CleanupFunc
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// CheckFunc reports whether a dependency is reachable.
type CheckFunc = func(ctx context.Context) error

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, cfg *config.Config) (*Backend, error)
}

// Publisher returns the event publisher, or a nil interface without AMQP.
func (b *Backend) Publisher() services.EventPublisher {
	if b.AMQP == nil {
		return nil
	}
	return b.AMQP
}

// Checks returns the readiness probes of every configured dependency.
func (b *Backend) Checks() map[string]CheckFunc {
	out := make(map[string]CheckFunc, len(b.checks))
	for name, fn := range b.checks {
		out[name] = fn
	}
	return out
}

func (b *Backend) addCheck(name string, fn CheckFunc) {
	if b.checks == nil {
		b.checks = make(map[string]CheckFunc)
	}
	b.checks[name] = fn
}

func (b *Backend) onClose(fn CleanupFunc) {
	b.cleanups = append(b.cleanups, fn)
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanups = nil
	return errors.Join(errs...)
}
