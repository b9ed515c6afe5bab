package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps every event it is notified of, normalized, so tests can
// assert on what a tree emitted. Err is returned from every Notify call.
type CaptureHook struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// Verbs lists the verbs of events about objectType, in arrival order. An
// empty objectType matches every event.
func (h *CaptureHook) Verbs(objectType string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var verbs []string
	for _, event := range h.Events {
		if objectType == "" || event.ObjectType == objectType {
			verbs = append(verbs, event.Verb)
		}
	}
	return verbs
}

// Last returns the most recent event with verb.
func (h *CaptureHook) Last(verb string) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.Events) - 1; i >= 0; i-- {
		if h.Events[i].Verb == verb {
			return h.Events[i], true
		}
	}
	return Event{}, false
}
