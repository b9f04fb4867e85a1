// Package pipeline applies uniform cross-cutting behavior to business
// operations. Each operation is wrapped at construction time with an
// ordered list of stages (validation, audit, timing); the stage order is
// fixed and no stage may swallow an error raised by an inner stage.
package pipeline

import "context"

// Operation is a business operation with positional arguments.
type Operation func(ctx context.Context, args []any) (any, error)

// Stage wraps an operation with cross-cutting behavior.
type Stage func(next Operation) Operation

// Chain applies stages to op so that the first stage is outermost.
func Chain(op Operation, stages ...Stage) Operation {
	for i := len(stages) - 1; i >= 0; i-- {
		op = stages[i](op)
	}
	return op
}
