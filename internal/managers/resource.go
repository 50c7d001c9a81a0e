package managers

import (
	"context"
	"errors"
	"sync"

	"github.com/horusctf/horus/internal/pkg/logs"
)

// ErrClosed is returned by closed resource.
var ErrClosed = errors.New("resource is closed")

// Loader loads value of resource.
type Loader[T any] func(ctx context.Context) (T, error)

// Mutation performs side-effecting call and returns success message.
type Mutation func(ctx context.Context) (string, error)

// Resource represents value fetched from backend.
//
// Every Reload starts new generation. Response of superseded generation
// or response received after Close is dropped.
type Resource[T any] struct {
	core       *Core
	name       string
	load       Loader[T]
	mutex      sync.RWMutex
	generation int64
	closed     bool
	loaded     bool
	value      T
	err        error
}

// NewResource creates resource with specified loader.
func NewResource[T any](core *Core, name string, load Loader[T]) *Resource[T] {
	return &Resource[T]{core: core, name: name, load: load}
}

// Reload fetches fresh value.
//
// Returns nil if response was dropped as stale.
func (r *Resource[T]) Reload(ctx context.Context) error {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return ErrClosed
	}
	r.generation++
	generation := r.generation
	r.mutex.Unlock()
	value, err := r.load(ctx)
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed || generation != r.generation {
		r.core.logger().Debug(
			"Dropped stale response",
			logs.Any("resource", r.name),
			logs.Any("generation", generation),
		)
		return nil
	}
	if err != nil {
		r.err = err
		r.core.logger().Warn(
			"Unable to load resource",
			logs.Any("resource", r.name), err,
		)
		return err
	}
	r.value, r.err, r.loaded = value, nil, true
	return nil
}

// Value returns last successfully loaded value.
func (r *Resource[T]) Value() T {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.value
}

// Loaded returns true if at least one load succeeded.
func (r *Resource[T]) Loaded() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.loaded
}

// Err returns error of last applied load.
func (r *Resource[T]) Err() error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.err
}

// Close drops all in-flight and future responses.
func (r *Resource[T]) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closed = true
}

func (r *Resource[T]) isClosed() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.closed
}

// Mutate runs mutation, shows exactly one notification and then
// unconditionally reloads resource.
//
// Failure message is taken from error detail, fallback is used when
// error has no detail.
func (r *Resource[T]) Mutate(ctx context.Context, fallback string, fn Mutation) error {
	message, err := fn(ctx)
	if r.isClosed() {
		return err
	}
	if err != nil {
		r.core.notify(FailureNotification, ErrorMessage(err, fallback))
	} else {
		r.core.notify(SuccessNotification, message)
	}
	if err := r.Reload(ctx); err != nil {
		r.core.logger().Warn(
			"Unable to reload after mutation",
			logs.Any("resource", r.name), err,
		)
	}
	return err
}
