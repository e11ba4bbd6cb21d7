// Package agent implements the pipeline stages. Every stage turns one
// string into another through the same Invoke contract.
package agent

import "context"

// Agent is a single pipeline stage.
type Agent interface {
	// Name identifies the stage in logs and events.
	Name() string

	// Invoke transforms input into the stage output.
	Invoke(ctx context.Context, input string) (string, error)
}
