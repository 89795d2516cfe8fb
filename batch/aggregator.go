package batch

import (
	"sync"
	"sync/atomic"
	"time"
)

// ProgressFunc is called once per completed job with the running count.
type ProgressFunc func(result JobResult, done, total int)

// Aggregator collects job results from many goroutines. A single collector
// goroutine owns the result slice; producers only send on a channel.
type Aggregator struct {
	total      int
	results    chan JobResult
	done       chan struct{}
	onProgress ProgressFunc
	now        func() time.Time

	completed atomic.Int64
	collected []JobResult

	closeOnce sync.Once
}

// NewAggregator starts collecting results for a batch of total jobs.
// onProgress may be nil.
func NewAggregator(total int, onProgress ProgressFunc) *Aggregator {
	a := &Aggregator{
		total:      total,
		results:    make(chan JobResult, max(total, 1)),
		done:       make(chan struct{}),
		onProgress: onProgress,
		now:        time.Now,
		collected:  make([]JobResult, 0, total),
	}
	go a.collect()
	return a
}

func (a *Aggregator) collect() {
	defer close(a.done)
	for res := range a.results {
		a.collected = append(a.collected, res)
		n := a.completed.Add(1)
		if a.onProgress != nil {
			a.onProgress(res, int(n), a.total)
		}
	}
}

// Add hands over one terminal result. It must not be called after Close.
func (a *Aggregator) Add(result JobResult) {
	a.results <- result
}

// Progress returns how many jobs finished out of the batch total.
func (a *Aggregator) Progress() (done, total int) {
	return int(a.completed.Load()), a.total
}

// Close waits for every added result to be collected and builds the report.
func (a *Aggregator) Close(id string) *BatchReport {
	a.closeOnce.Do(func() { close(a.results) })
	<-a.done
	return NewReport(id, a.now(), a.collected)
}
