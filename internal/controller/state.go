package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Phase names a controller state. Controllers add their own busy phases on
// top of the shared ones below.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseContent Phase = "content"
	PhaseError   Phase = "error"
)

// State is the controller's current, continuously observed condition.
// Err is set only for PhaseError. The zero State means "unchanged" wherever
// a Step or Result carries one.
type State struct {
	Phase Phase
	Err   *Error
}

// Initial returns the initial state.
func Initial() State { return State{Phase: PhaseInitial} }

// Content returns the content state.
func Content() State { return State{Phase: PhaseContent} }

// Busy returns a state for the given busy phase.
func Busy(phase Phase) State { return State{Phase: phase} }

// Failed returns an error state carrying err.
func Failed(err *Error) State { return State{Phase: PhaseError, Err: err} }

// Is reports whether the state is in phase p.
func (s State) Is(p Phase) bool { return s.Phase == p }

// IsZero reports whether s is the "unchanged" sentinel.
func (s State) IsZero() bool { return s.Phase == "" }

// Idle reports whether new actions are expected: content, error and initial
// are stable, everything else is a busy variant.
func (s State) Idle() bool {
	switch s.Phase {
	case PhaseInitial, PhaseContent, PhaseError:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	if s.Phase == PhaseError && s.Err != nil {
		return fmt.Sprintf("error(%s)", s.Err.Message)
	}
	return string(s.Phase)
}

// Error is the single error representation controllers publish. It carries
// a display message only.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// NewError collapses any error into an *Error.
func NewError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return &Error{Message: msg}
}

// Errorf builds an *Error from a format string.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsCancellation reports whether err only signals that the task was
// superseded or the controller closed.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
