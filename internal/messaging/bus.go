// Package messaging is the request/response channel between the popup
// side (CLI, HTTP clients) and the page side that owns the banner.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	appLog "holidayd/internal/log"
)

// Actions understood by the reminder service.
const (
	ActionGetHolidays  = "getHolidays"
	ActionSaveSettings = "saveSettings"
	ActionGetSettings  = "getSettings"
	ActionTestBanner   = "testBanner"
)

var (
	// ErrNoReceiver means nothing is listening for the action, e.g. no
	// target page is connected.
	ErrNoReceiver = errors.New("messaging: no receiver for action")
	// ErrUnknownAction is reported inside a Response, never returned.
	ErrUnknownAction = errors.New("Unknown action")
)

// Request is one message. Payload is the action-specific argument.
type Request struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response carries either Data or Error.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the response carries no error.
func (r Response) OK() bool { return r.Error == "" }

// Handler answers one action. A returned error becomes Response.Error.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Bus is implemented by Router.
type Bus interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Router dispatches requests by action name. Actions can be registered
// and withdrawn at runtime as receivers come and go.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	// strict makes unregistered actions fail with ErrNoReceiver instead
	// of an "Unknown action" response.
	strict map[string]bool
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
		strict:   make(map[string]bool),
	}
}

// Register installs h for action, replacing any previous handler.
func (r *Router) Register(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Unregister removes the handler for action.
func (r *Router) Unregister(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, action)
}

// Expect declares an action that is known but may lack a receiver. Sending
// it with no handler yields ErrNoReceiver.
func (r *Router) Expect(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strict[action] = true
}

// Actions lists the registered actions, sorted.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Send delivers req. Handler failures come back inside the Response; only
// a missing receiver is returned as an error.
func (r *Router) Send(ctx context.Context, req Request) (Response, error) {
	r.mu.RLock()
	h, ok := r.handlers[req.Action]
	expected := r.strict[req.Action]
	r.mu.RUnlock()

	if !ok {
		if expected {
			return Response{}, fmt.Errorf("%w: %s", ErrNoReceiver, req.Action)
		}
		appLog.Warn("message with unknown action", "action", req.Action)
		return Response{Error: ErrUnknownAction.Error()}, nil
	}

	data, err := h(ctx, req.Payload)
	if err != nil {
		appLog.Error("message handler failed", err, "action", req.Action)
		return Response{Error: err.Error()}, nil
	}
	return Response{Data: data}, nil
}
