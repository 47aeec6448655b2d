// Package controller implements the generic Action/State/Event controller
// every usher screen is built on.
//
// # Overview
//
// A controller owns three things a screen renders from:
//
//   - a State: one Phase plus an optional *Error
//   - an ordered set of background Markers for work running alongside
//   - a channel of one-shot Events (errors, "got random item", "stopped")
//
// Owners embed *Controller[A, E] and supply a Handler that maps the current
// State and an action onto a Step. The controller applies steps; owners never
// mutate State directly.
//
// # Architecture
//
//	caller                 Controller                       Task goroutine
//	──────                 ──────────                       ──────────────
//	Respond(action) ──→ lock, Handler(state, action)
//	                      ├ Cancel?   cancel primary
//	                      ├ State     publish
//	                      ├ Events    emit
//	                      └ Task?     launch ───────────→ Task(ctx)
//	               ←── State                                    │
//	                    lock, still current? ←────────────── Result
//	                      ├ Apply, State, Events
//	                      └ drop when superseded
//
// Respond is synchronous: the returned State already reflects the step. The
// Handler runs under the controller lock and must not call back into the
// controller. Perform applies a step that did not come from an action, such
// as the resolve task a player starts at construction.
//
// # Cancellation
//
// Only one primary task runs at a time. An accepted action cancels the
// previous primary task when it starts a task of its own or sets
// Step.Cancel; after that the superseded task can no longer publish.
// Every primary launch and every Cancel bumps a generation counter, and a
// finishing task publishes only while its generation is still current.
// This holds even for tasks that ignore their context, so a task started
// before action A2 never changes state after A2 was applied.
//
// Concurrent steps run next to the primary task in lanes keyed by Marker.
// A new concurrent step with the same Marker replaces the previous one in
// that lane and leaves the primary task alone. Handlers return Keep for
// actions they ignore; Keep cancels nothing.
//
// A Terminal step stops the controller: every lane is cancelled, and later
// actions are ignored and answered with the current state.
//
// # Markers
//
// Markers are reference counted and keep the order they were first added
// in. A marker is added when its task launches and removed exactly once
// when that task returns, whether it succeeded, failed, was cancelled or
// was superseded.
//
// # Error Handling
//
// A failing task becomes Failed(*Error) plus the owner's OnError event.
// *Error carries only a message; the structured error stays in the logs.
// Cancellation, whether reported as context.Canceled or observed through
// ctx.Err, publishes nothing.
//
// # Events and Changes
//
// Events are buffered (Options.EventBuffer, 64 by default). When nobody
// drains the channel, further events are dropped, counted by Dropped and
// logged every 100 drops. Changes carries a coalesced signal after every
// step and every finished task; readers re-read State, Background and the
// owner's data rather than expecting one signal per change.
//
// # Usage
//
//	lib := catalog.Items(library.Params{})
//	defer lib.Close()
//
//	lib.Respond(paging.Refresh{})
//	state, err := lib.Await(ctx) // no task in flight
//	if err == nil && state.Err == nil {
//		render(lib.Items())
//	}
//
// Close cancels every task, waits for them and closes the Events and
// Changes channels. It is safe to call more than once.
package controller
