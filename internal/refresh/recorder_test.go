package refresh

import (
	"sync"

	"git.home.luguber.info/inful/verin/internal/metrics"
)

type countingRecorder struct {
	metrics.NoopRecorder

	mu       sync.Mutex
	triggers map[string]int
	dropped  map[string]int
}

func (r *countingRecorder) IncTrigger(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.triggers == nil {
		r.triggers = map[string]int{}
	}
	r.triggers[source]++
}

func (r *countingRecorder) IncSubscriberDropped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped == nil {
		r.dropped = map[string]int{}
	}
	r.dropped[reason]++
}

func (r *countingRecorder) triggerCount(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.triggers[source]
}

func (r *countingRecorder) droppedCount(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped[reason]
}
