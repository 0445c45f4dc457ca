package testutil

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder records when named critical sections ran and how many ran at once.
// It is shared by the concurrency tests of the lock coordinator and the
// executor.
type Recorder struct {
	mu      sync.Mutex
	records map[string][]ExecutionRecord

	active    atomic.Int32
	maxActive atomic.Int32
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string][]ExecutionRecord)}
}

// Run executes fn as the critical section called name and records its start
// and end times.
func (r *Recorder) Run(name string, fn func()) {
	n := r.active.Add(1)
	for {
		m := r.maxActive.Load()
		if n <= m || r.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	start := time.Now()
	defer func() {
		end := time.Now()
		r.active.Add(-1)
		r.mu.Lock()
		r.records[name] = append(r.records[name], ExecutionRecord{Start: start, End: end})
		r.mu.Unlock()
	}()
	fn()
}

// Sleep is Run with a section that sleeps for d.
func (r *Recorder) Sleep(name string, d time.Duration) {
	r.Run(name, func() { time.Sleep(d) })
}

// MaxActive returns the highest number of sections that ran at once.
func (r *Recorder) MaxActive() int {
	return int(r.maxActive.Load())
}

// Records returns the recorded executions of name in start order.
func (r *Recorder) Records(name string) []ExecutionRecord {
	r.mu.Lock()
	out := append([]ExecutionRecord(nil), r.records[name]...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Names returns the recorded section names, sorted.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
