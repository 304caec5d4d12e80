package state

import (
	"context"
	"fmt"

	persist "github.com/goliatone/go-persist"
)

// TxOption configures Mutate, Apply and Go.
type TxOption func(*txConfig)

type txConfig struct {
	load bool
	save bool
}

// WithLoad toggles loading before the mutation. Enabled by default.
func WithLoad(load bool) TxOption {
	return func(cfg *txConfig) {
		cfg.load = load
	}
}

// WithSave toggles saving after the mutation. Enabled by default.
func WithSave(save bool) TxOption {
	return func(cfg *txConfig) {
		cfg.save = save
	}
}

func applyTxOptions(opts []TxOption) txConfig {
	cfg := txConfig{load: true, save: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Mutate loads entity, runs fn on its value and saves it.
func Mutate[V persist.Value](ctx context.Context, entity *Entity[V], fn func(V) error, opts ...TxOption) error {
	if fn == nil {
		return fmt.Errorf("state: mutator is required")
	}
	_, err := Apply(ctx, entity, func(value V) (struct{}, error) {
		return struct{}{}, fn(value)
	}, opts...)
	return err
}

// Apply loads entity, runs fn on its value and saves it, returning fn's
// result. The save is skipped when fn fails or when the value's Validate
// method rejects it; the value keeps whatever fn did to it either way.
func Apply[V persist.Value, R any](ctx context.Context, entity *Entity[V], fn func(V) (R, error), opts ...TxOption) (R, error) {
	var zero R
	if entity == nil {
		return zero, fmt.Errorf("state: entity is required")
	}
	if fn == nil {
		return zero, fmt.Errorf("state: mutator is required")
	}
	cfg := applyTxOptions(opts)

	if cfg.load {
		if err := entity.Load(ctx); err != nil {
			return zero, err
		}
	}
	result, err := fn(entity.Value())
	if err != nil {
		return result, err
	}
	if !cfg.save {
		return result, nil
	}
	if err := persist.Validate(entity.Value()); err != nil {
		return result, err
	}
	if err := entity.Save(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// Task is the handle of an asynchronous transaction.
type Task[R any] struct {
	done   chan struct{}
	result R
	err    error
}

// Done is closed once the transaction has finished.
func (t *Task[R]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the transaction finishes or ctx is done. Abandoning the
// wait does not stop the transaction.
func (t *Task[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Go runs the load, fn, save sequence on a new goroutine. The caller must not
// touch the entity until the task is done.
func Go[V persist.Value, R any](ctx context.Context, entity *Entity[V], fn func(context.Context, V) (R, error), opts ...TxOption) *Task[R] {
	task := &Task[R]{done: make(chan struct{})}
	go func() {
		defer close(task.done)
		if fn == nil {
			task.err = fmt.Errorf("state: mutator is required")
			return
		}
		task.result, task.err = Apply(ctx, entity, func(value V) (R, error) {
			return fn(ctx, value)
		}, opts...)
	}()
	return task
}
