package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "persist"

// Config controls emission defaults.
type Config struct {
	Enabled bool
	Channel string

	// ActorID and TenantID fill events that do not carry their own.
	ActorID  string
	TenantID string
}

// Emitter forwards events to hooks after applying configured defaults.
type Emitter struct {
	hooks   Hooks
	enabled bool
	cfg     Config
}

// NewEmitter constructs an emitter. It is disabled when cfg.Enabled is false
// or no non-nil hook is supplied.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	var kept Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &Emitter{
		hooks:   kept,
		enabled: cfg.Enabled && len(kept) > 0,
		cfg:     cfg,
	}
}

// Enabled reports whether Emit reaches any hook. A nil emitter is disabled.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit forwards event to every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.cfg.ActorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.cfg.TenantID
	}
	return e.hooks.Notify(ctx, event)
}
