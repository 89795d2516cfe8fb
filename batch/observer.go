package batch

import "time"

// Observer receives job lifecycle events. Implementations must be safe for
// concurrent use; the pipeline calls them from job goroutines.
type Observer interface {
	// JobStarted fires once a job holds its first slot and before its first
	// attempt, under either slot policy.
	JobStarted(job Job)
	// AttemptFinished fires after every provider call. err is nil on success.
	AttemptFinished(job Job, attempt int, elapsed time.Duration, err error)
	// JobFinished fires once with the terminal result.
	JobFinished(result JobResult)
}

type nopObserver struct{}

func (nopObserver) JobStarted(Job) {}
func (nopObserver) AttemptFinished(Job, int, time.Duration, error) {}
func (nopObserver) JobFinished(JobResult) {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) JobStarted(job Job) {
	for _, obs := range o {
		obs.JobStarted(job)
	}
}

func (o Observers) AttemptFinished(job Job, attempt int, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.AttemptFinished(job, attempt, elapsed, err)
	}
}

func (o Observers) JobFinished(result JobResult) {
	for _, obs := range o {
		obs.JobFinished(result)
	}
}
