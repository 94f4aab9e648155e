package hook

import (
	"context"
	"log/slog"
)

// Registry dispatches a Context to every Hook registered for its Point, in
// registration order, stopping at the first hook that returns anything
// other than Continue.
type Registry struct {
	hooks []Hook
}

// NewRegistry creates an empty Registry. An empty registry always
// dispatches to Continue.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends h to the registry. Registration order is dispatch order.
func (r *Registry) Add(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Dispatch runs every hook registered for hctx.Point until one returns a
// non-Continue action, which short-circuits the remaining hooks at that
// point. A hook's error is logged and swallowed — it never halts the
// pipeline on its own, since a misbehaving hook shouldn't be able to stop
// every other hook, and a gap in hook coverage is preferable to a hook
// bug silently blocking every operator run.
func (r *Registry) Dispatch(ctx context.Context, hctx *Context) Action {
	for _, h := range r.hooks {
		if !wantsPoint(h, hctx.Point) {
			continue
		}
		action, err := h.Handle(ctx, hctx)
		if err != nil {
			slog.Warn("hook error treated as continue", "hook", h.Name(), "point", hctx.Point.String(), "error", err)
			continue
		}
		if action.Kind != Continue {
			return action
		}
	}
	return ContinueAction()
}

func wantsPoint(h Hook, p Point) bool {
	for _, pt := range h.Points() {
		if pt == p {
			return true
		}
	}
	return false
}
