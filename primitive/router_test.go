package primitive_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/primitive"
)

func TestRouter_SelectsRoute(t *testing.T) {
	fast := primitive.NewMock("fast").WithResult("via fast")
	slow := primitive.NewMock("slow").WithResult("via slow")
	router := primitive.NewRouter("tier", keyOf, map[string]primitive.Primitive{
		"fast": fast,
		"slow": slow,
	}, "")

	wctx := flow.New()
	out, err := router.Execute(context.Background(), wctx, "fast")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "via fast" {
		t.Errorf("output = %v, want via fast", out)
	}
	if slow.Calls() != 0 {
		t.Errorf("unselected route ran %d times, want 0", slow.Calls())
	}
	if v, _ := wctx.Get(flow.SlotSelectedRoute); v != "fast" {
		t.Errorf("selected route = %v, want fast", v)
	}
}

func TestRouter_DefaultRoute(t *testing.T) {
	fallback := primitive.NewMock("standard").WithResult("via standard")
	router := primitive.NewRouter("tier", keyOf, map[string]primitive.Primitive{
		"standard": fallback,
	}, "standard")

	wctx := flow.New()
	out, err := router.Execute(context.Background(), wctx, "premium")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "via standard" {
		t.Errorf("output = %v, want via standard", out)
	}
	if v, _ := wctx.Get(flow.SlotSelectedRoute); v != "standard" {
		t.Errorf("selected route = %v, want standard", v)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := primitive.NewRouter("tier", keyOf, map[string]primitive.Primitive{
		"fast": primitive.NewMock("fast"),
	}, "")

	_, err := router.Execute(context.Background(), flow.New(), "nope")
	if !errors.Is(err, primitive.ErrUnknownRoute) {
		t.Errorf("error = %v, want ErrUnknownRoute", err)
	}

	var rerr *primitive.RouteError
	if !errors.As(err, &rerr) {
		t.Fatalf("error type = %T, want *RouteError", err)
	}
	if rerr.Route != "nope" {
		t.Errorf("RouteError.Route = %q, want nope", rerr.Route)
	}
}

func TestRouter_SelectorError(t *testing.T) {
	boom := errors.New("selector failed")
	selector := func(wctx *flow.Context, input any) (string, error) { return "", boom }
	router := primitive.NewRouter("tier", selector, map[string]primitive.Primitive{}, "")

	_, err := router.Execute(context.Background(), flow.New(), nil)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want selector error reachable through unwrap", err)
	}
}

func TestMock_Recording(t *testing.T) {
	mock := primitive.NewMock("m").WithResult(42)

	for _, in := range []any{"a", "b"} {
		if _, err := mock.Execute(context.Background(), flow.New(), in); err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
	}

	if mock.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", mock.Calls())
	}
	inputs := mock.Inputs()
	if len(inputs) != 2 || inputs[0] != "a" || inputs[1] != "b" {
		t.Errorf("Inputs() = %v, want [a b]", inputs)
	}
}

func TestMock_EchoesByDefault(t *testing.T) {
	out, err := primitive.NewMock("echo").Execute(context.Background(), flow.New(), "payload")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "payload" {
		t.Errorf("output = %v, want payload echoed", out)
	}
}
