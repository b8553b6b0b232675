// Package events provides the ordered publish/subscribe bus that decouples
// producers (sensor ingestion, pose inference) from consumers (fusion, HUD).
// Hooks run in (priority desc, registration order asc) order, and every
// dispatch is fault-isolated: a failing handler is logged and skipped, never
// propagated.
package events

// Name identifies an event on the bus.
type Name string

// The closed catalog of bus events. Handlers register against these names;
// new events should be added here rather than invented at call sites.
const (
	// Lifecycle (driver -> strategies)
	EventSetup   Name = "setup"   // acquire resources, transition to active
	EventCleanup Name = "cleanup" // release resources, transition to inactive

	// Per-tick processing (driver -> strategies)
	EventSensorDrain   Name = "sensor_drain"   // drain buffered accelerometer samples
	EventFrameReceived Name = "frame_received" // process a new landmark frame

	// Chained-context dispatch (driver -> HUD contributors)
	EventDrawHUD Name = "draw_hud" // accumulate HUD lines and layout state

	// Notifications (driver -> observers)
	EventGameStateChanged Name = "game_state_changed" // game state snapshot in payload
	EventPunchDetected    Name = "punch_detected"     // fused decision in payload
)
