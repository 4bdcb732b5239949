package metrics

import "time"

// ResultLabel enumerates per-document results.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// BuildOutcome enumerates whole-build outcomes.
type BuildOutcome string

const (
	OutcomeSuccess BuildOutcome = "success"
	OutcomePartial BuildOutcome = "partial"
	OutcomeFailed  BuildOutcome = "failed"
)

// Trigger sources.
const (
	TriggerTCP      = "tcp"
	TriggerNATS     = "nats"
	TriggerRejected = "rejected"
)

// Drop reasons for subscribers removed by the service.
const (
	DropBackpressure = "backpressure"
	DropWriteFailed  = "write_failed"
)

// Recorder defines observability hooks for builds and the refresh service.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcome)
	IncDocumentResult(result ResultLabel)
	SetSubscribers(n int)
	IncTrigger(source string)
	IncBroadcast()
	IncSubscriberDropped(reason string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(BuildOutcome)       {}
func (NoopRecorder) IncDocumentResult(ResultLabel)      {}
func (NoopRecorder) SetSubscribers(int)                 {}
func (NoopRecorder) IncTrigger(string)                  {}
func (NoopRecorder) IncBroadcast()                      {}
func (NoopRecorder) IncSubscriberDropped(string)        {}
