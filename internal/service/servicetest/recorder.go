package servicetest

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// Recorder captures published monitor events.
type Recorder struct {
	mu     sync.Mutex
	events []model.MonitorEvent
}

func (r *Recorder) Publish(_ context.Context, ev model.MonitorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the events seen so far, oldest first.
func (r *Recorder) Events() []model.MonitorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.MonitorEvent(nil), r.events...)
}

// Types lists the event types seen so far.
func (r *Recorder) Types() []model.MonitorEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.MonitorEventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
