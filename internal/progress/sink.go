package progress

import "context"

// Sink receives batches of run events from the hub's delivery goroutine.
// Consume is never called concurrently for one subscription.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter is what workers and the breaker listener see of the hub.
type Emitter interface {
	Emit(evt Event)
}

// Subscription routes stages to a sink. No stages means every stage.
type Subscription struct {
	Sink   Sink
	Stages []Stage
}

// All subscribes sink to every stage.
func All(sink Sink) Subscription {
	return Subscription{Sink: sink}
}

// Only subscribes sink to the listed stages.
func Only(sink Sink, stages ...Stage) Subscription {
	return Subscription{Sink: sink, Stages: stages}
}
