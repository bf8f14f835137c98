// Package inference provides the pluggable backends that produce AI output
// for the receipt builder. The builder treats an Invoker as an opaque
// capability and never retries it.
package inference

import (
	"context"
	"fmt"
)

// Invoker produces the response text for one inference exchange.
type Invoker interface {
	Invoke(ctx context.Context, userInput, systemInstructions string) (string, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, userInput, systemInstructions string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, userInput, systemInstructions string) (string, error) {
	return f(ctx, userInput, systemInstructions)
}

// Simulated returns a deterministic echo responder for development and demo
// environments where no real backend is configured.
func Simulated() Invoker {
	return InvokerFunc(func(_ context.Context, userInput, systemInstructions string) (string, error) {
		return fmt.Sprintf("AI Response to: %q based on instructions: %q", userInput, systemInstructions), nil
	})
}
