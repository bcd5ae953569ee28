package hook

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/byechat/internal/app"
	"github.com/ayusman/byechat/internal/config"
	"github.com/rs/zerolog/log"
)

// Source delivers status events.
type Source interface {
	Subscribe(buffer int) (<-chan app.Status, func())
}

// Dispatcher runs the hooks whose event matches each status kind.
// Hooks run in their own goroutines and never block the event stream.
type Dispatcher struct {
	hooks    []Hook
	executor *Executor
	wg       sync.WaitGroup
}

// FromConfig converts configured hooks.
func FromConfig(cfgs []config.HookConfig) []Hook {
	hooks := make([]Hook, 0, len(cfgs))
	for _, c := range cfgs {
		hooks = append(hooks, Hook{
			Event:   app.StatusKind(c.Event),
			Command: c.Command,
			Args:    c.Args,
			Timeout: time.Duration(c.TimeoutMs) * time.Millisecond,
		})
	}
	return hooks
}

// NewDispatcher creates a dispatcher for hooks.
func NewDispatcher(hooks []Hook) *Dispatcher {
	return &Dispatcher{
		hooks:    hooks,
		executor: NewExecutor(),
	}
}

// Matching returns the hooks bound to kind.
func (d *Dispatcher) Matching(kind app.StatusKind) []Hook {
	var out []Hook
	for _, h := range d.hooks {
		if h.Event == kind {
			out = append(out, h)
		}
	}
	return out
}

// Run consumes src until ctx is done, then waits for running hooks.
func (d *Dispatcher) Run(ctx context.Context, src Source) {
	if len(d.hooks) == 0 {
		return
	}

	events, cancel := src.Subscribe(32)
	defer cancel()
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-events:
			if !ok {
				return
			}
			d.Dispatch(ctx, st)
		}
	}
}

// Dispatch starts every hook matching st.
func (d *Dispatcher) Dispatch(ctx context.Context, st app.Status) {
	for _, h := range d.Matching(st.Kind) {
		d.wg.Add(1)
		go func(h Hook) {
			defer d.wg.Done()

			out, err := d.executor.Execute(ctx, h, st)
			if err != nil {
				log.Warn().Err(err).Str("event", string(h.Event)).Msg("hook failed")
				return
			}
			log.Debug().Str("event", string(h.Event)).Str("command", h.Command).Str("output", out).Msg("hook ran")
		}(h)
	}
}

// Wait blocks until every started hook has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
