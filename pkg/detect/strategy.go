package detect

import "github.com/teslashibe/go-punch/pkg/events"

// Strategy is a pluggable producer of a Result from one sensing modality.
// The fusion detector holds strategies behind this interface only and never
// references concrete implementations.
//
// Lifecycle: Inactive --Setup--> Active --Cleanup--> Inactive. Setup and
// Cleanup are invoked exactly once per transition by the lifecycle events.
// A Setup failure leaves the strategy Inactive and excluded from fusion; it
// is surfaced to the driver through the trigger results, never by crashing
// the bus.
type Strategy interface {
	// Name identifies the strategy in metrics and logs.
	Name() string

	// RegisterHooks subscribes the strategy to the bus events it needs,
	// each with an explicit priority.
	RegisterHooks(bus *events.Bus)

	// Setup acquires resources and transitions the strategy to Active.
	Setup() error

	// Cleanup releases resources and transitions back to Inactive.
	// It is idempotent.
	Cleanup()

	// Active reports whether the strategy currently has meaningful data to
	// contribute (a connected sensor, visible landmarks), not whether the
	// process-level lifecycle has run.
	Active() bool

	// CurrentResult returns the most recently computed result, or a zero
	// result if nothing has been computed yet. It never blocks.
	CurrentResult() Result
}
