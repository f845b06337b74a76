package primitive

import (
	"context"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
)

// Router holds a mapping from route name to primitive plus a default route
// name, selects a route with a Selector, and delegates execution to the
// selected primitive.
//
// Unlike Switch, an unresolvable route is an error: if the selected route is
// missing and the default route name does not resolve either, Execute fails
// with ErrUnknownRoute. The route that actually served the request is
// recorded under flow.SlotSelectedRoute for metrics.
type Router struct {
	name         string
	selector     Selector
	routes       map[string]Primitive
	defaultRoute string
}

// NewRouter creates a Router. defaultRoute may be empty when every selector
// outcome is expected to resolve directly.
func NewRouter(name string, selector Selector, routes map[string]Primitive, defaultRoute string) *Router {
	return &Router{
		name:         name,
		selector:     selector,
		routes:       routes,
		defaultRoute: defaultRoute,
	}
}

func (r *Router) Name() string { return r.name }
func (r *Router) Kind() Kind   { return KindRouter }

// Routes returns the configured route names.
func (r *Router) Routes() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}

func (r *Router) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	key, err := r.selector(wctx, input)
	if err != nil {
		return nil, &RouteError{Primitive: r.name, Err: err}
	}

	selected := key
	target, found := r.routes[key]
	if !found && r.defaultRoute != "" {
		selected = r.defaultRoute
		target, found = r.routes[r.defaultRoute]
	}
	if !found {
		return nil, &RouteError{Primitive: r.name, Route: key, Err: ErrUnknownRoute}
	}

	wctx.Set(flow.SlotSelectedRoute, selected)
	wctx.Emit(ctx, observability.Event{
		Type:   EventRouteSelect,
		Level:  observability.LevelVerbose,
		Source: r.name,
		Data:   map[string]any{"key": key, "route": selected},
	})

	out, execErr := target.Execute(ctx, wctx, input)

	wctx.Emit(ctx, observability.Event{
		Type:   EventRouteExecute,
		Level:  levelFor(execErr),
		Source: r.name,
		Data: map[string]any{
			"route": selected,
			"error": execErr != nil,
		},
	})

	return out, execErr
}
