package controller

import "context"

// Marker names a background operation that may run alongside others.
type Marker string

// Result is what an asynchronous task publishes when it finishes while
// still current.
type Result[E any] struct {
	// State is published after Apply; the zero State leaves it untouched.
	State State
	// Events are emitted after State is published.
	Events []E
	// Apply commits task output to the owner's data. It runs under the
	// controller lock and only when the task was not superseded.
	Apply func()
}

// Task is the asynchronous part of a step. It must honour ctx cancellation.
type Task[E any] func(ctx context.Context) (Result[E], error)

// Step describes how the controller reacts to one action.
type Step[E any] struct {
	// State is published synchronously; the zero State keeps the current one.
	State State
	// Events are emitted synchronously, after State.
	Events []E
	// Task, when set, runs asynchronously.
	Task Task[E]
	// Marker is held in the background set while Task runs.
	Marker Marker
	// Concurrent runs Task next to the primary task instead of replacing
	// it. Concurrent tasks with the same Marker replace each other.
	Concurrent bool
	// Cancel cancels the in-flight primary task before anything else.
	Cancel bool
	// Terminal stops the controller after this step; later actions are
	// ignored.
	Terminal bool
}

// Handler maps an action onto a step given the current state. It runs
// under the controller lock and must not call back into the controller.
type Handler[A any, E any] func(current State, action A) Step[E]

// Keep returns a step that changes nothing.
func Keep[E any]() Step[E] { return Step[E]{} }
