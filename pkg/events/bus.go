package events

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/teslashibe/go-punch/internal/log"
)

// Handler is a callback bound to an event. For broadcast dispatch the payload
// is whatever the trigger site passed. For chained dispatch the first payload
// element is the accumulated Context.
type Handler func(payload ...any) (any, error)

// Context is the mutable state threaded through a chained dispatch. Handlers
// that return a Context have it shallow-merged into the accumulated one.
type Context map[string]any

// Result is the outcome of one hook invocation during a Trigger call.
// Exactly one of Value/Err is meaningful; a recovered panic surfaces as Err.
type Result struct {
	Value any
	Err   error
}

// Ok reports whether the invocation succeeded.
func (r Result) Ok() bool { return r.Err == nil }

// hook is one registered callback. seq breaks priority ties so that ordering
// is stable across re-sorts.
type hook struct {
	priority int
	seq      uint64
	fn       Handler
}

// Bus dispatches events to registered hooks. One Bus serves one application
// context; it is passed explicitly to every component at construction.
type Bus struct {
	mu      sync.Mutex
	hooks   map[Name][]hook
	nextSeq uint64
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		hooks: make(map[Name][]hook),
	}
}

// Register binds a handler to an event with the given priority. Higher
// priorities run first; equal priorities run in registration order.
// Registering the same handler twice yields two invocations.
func (b *Bus) Register(event Name, fn Handler, priority int) {
	if fn == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	b.hooks[event] = append(b.hooks[event], hook{
		priority: priority,
		seq:      b.nextSeq,
		fn:       fn,
	})

	hs := b.hooks[event]
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].priority != hs[j].priority {
			return hs[i].priority > hs[j].priority
		}
		return hs[i].seq < hs[j].seq
	})
}

// Unregister removes every hook under event whose handler is the same
// function value as fn. It is a no-op when nothing matches.
func (b *Bus) Unregister(event Name, fn Handler) {
	if fn == nil {
		return
	}
	target := reflect.ValueOf(fn).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()

	hs := b.hooks[event]
	kept := hs[:0]
	for _, h := range hs {
		if reflect.ValueOf(h.fn).Pointer() != target {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(b.hooks, event)
		return
	}
	b.hooks[event] = kept
}

// Trigger invokes every hook for event in order, passing payload through.
// Each invocation is independent: an error or panic is logged with the event
// name and handler identity, recorded in the returned slice, and dispatch
// continues with the next hook. The slice has one entry per hook.
func (b *Bus) Trigger(event Name, payload ...any) []Result {
	hs := b.snapshot(event)
	if len(hs) == 0 {
		return nil
	}

	results := make([]Result, 0, len(hs))
	for _, h := range hs {
		value, err := invoke(h.fn, payload...)
		if err != nil {
			log.Error("event handler failed",
				"event", string(event),
				"handler", handlerName(h.fn),
				"error", err)
		}
		results = append(results, Result{Value: value, Err: err})
	}
	return results
}

// TriggerChain invokes every hook for event in order, passing the accumulated
// context as the first payload element. When a handler returns a Context (or
// a plain map), its keys overwrite the accumulated context; other keys are
// untouched. Failures are logged and skipped without aborting the chain.
// The initial context is copied, never mutated.
func (b *Bus) TriggerChain(event Name, initial Context, payload ...any) Context {
	ctx := make(Context, len(initial))
	for k, v := range initial {
		ctx[k] = v
	}

	hs := b.snapshot(event)
	for _, h := range hs {
		args := make([]any, 0, len(payload)+1)
		args = append(args, ctx)
		args = append(args, payload...)

		value, err := invoke(h.fn, args...)
		if err != nil {
			log.Error("chain handler failed",
				"event", string(event),
				"handler", handlerName(h.fn),
				"error", err)
			continue
		}

		switch update := value.(type) {
		case Context:
			for k, v := range update {
				ctx[k] = v
			}
		case map[string]any:
			for k, v := range update {
				ctx[k] = v
			}
		}
	}
	return ctx
}

// HasListeners reports whether any hooks are registered for event.
func (b *Bus) HasListeners(event Name) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hooks[event]) > 0
}

// EventNames returns the set of events that currently have hooks.
func (b *Bus) EventNames() []Name {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]Name, 0, len(b.hooks))
	for name := range b.hooks {
		names = append(names, name)
	}
	return names
}

// Clear removes every hook registered for event.
func (b *Bus) Clear(event Name) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.hooks, event)
}

// ClearAll removes every hook for every event.
func (b *Bus) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = make(map[Name][]hook)
}

// snapshot copies the hook slice for event so dispatch runs without holding
// the lock. Handlers may register or unregister hooks while dispatching.
func (b *Bus) snapshot(event Name) []hook {
	b.mu.Lock()
	defer b.mu.Unlock()

	hs := b.hooks[event]
	if len(hs) == 0 {
		return nil
	}
	out := make([]hook, len(hs))
	copy(out, hs)
	return out
}

// invoke runs one handler, converting a panic into an error so that a
// misbehaving hook cannot take down the tick loop.
func invoke(fn Handler, payload ...any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("events: handler panic: %v", r)
		}
	}()
	return fn(payload...)
}

// handlerName resolves a best-effort identity for logging.
func handlerName(fn Handler) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("0x%x", pc)
}
