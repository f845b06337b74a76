// Package primitive defines the unit of composable asynchronous work and the
// control-flow combinators that build pipelines out of it.
//
// Every primitive implements one operation: Execute(ctx, wctx, input) →
// (output, error). Composition builds new primitives from existing ones
// without changing that contract:
//
//   - Sequential chains primitives so each step's output feeds the next,
//     threading one flow.Context through every step (checkpoints and state
//     accumulate visibly). The first failing step aborts the chain and its
//     error propagates unchanged.
//   - Parallel launches every branch concurrently, each with its own child
//     context, and always waits for all branches to finish. Outputs come back
//     in declaration order; failures are collected into one aggregate error
//     raised only after every branch has terminated.
//   - Conditional, Switch, and Router select exactly one child based on the
//     input (or context) and record the decision in the context's state
//     side-channel for observability.
//
// Recovery wrappers live in the resilience package, caching and history in
// cache and memory, and transparent instrumentation in instrument. All of
// them implement Primitive, so any combination nests freely:
//
//	pipeline := primitive.NewSequential("enrich",
//	    resilience.NewRetry(fetch, resilience.DefaultPolicy()),
//	    primitive.NewParallel("fanout", scoreA, scoreB),
//	    rank,
//	)
//	out, err := pipeline.Execute(ctx, flow.New(), input)
package primitive
