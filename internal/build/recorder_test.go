package build

import (
	"sync"
	"time"

	"git.home.luguber.info/inful/verin/internal/metrics"
)

type countingRecorder struct {
	metrics.NoopRecorder

	mu        sync.Mutex
	documents map[metrics.ResultLabel]int
	outcomes  []metrics.BuildOutcome
}

func (r *countingRecorder) IncDocumentResult(result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.documents == nil {
		r.documents = map[metrics.ResultLabel]int{}
	}
	r.documents[result]++
}

func (r *countingRecorder) IncBuildOutcome(outcome metrics.BuildOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) ObserveBuildDuration(time.Duration) {}
