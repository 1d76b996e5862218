package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds real-time aggregated metrics
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64

	// Latency histogram (microseconds), successful requests only
	ServiceTime *SafeHistogram

	errMu  sync.Mutex
	errors map[string]uint64
}

func NewStats() *Stats {
	return &Stats{
		ServiceTime: NewSafeHistogram(),
		errors:      make(map[string]uint64),
	}
}

// Add records one finished request. errMsg is empty for successes.
func (s *Stats) Add(success bool, bytes int64, serviceTime time.Duration, errMsg string) {
	atomic.AddUint64(&s.Requests, 1)
	if bytes > 0 {
		atomic.AddUint64(&s.Bytes, uint64(bytes))
	}

	if success {
		atomic.AddUint64(&s.Success, 1)
		s.ServiceTime.RecordDuration(serviceTime)
		return
	}

	atomic.AddUint64(&s.Fail, 1)
	if errMsg != "" {
		s.errMu.Lock()
		s.errors[errMsg]++
		s.errMu.Unlock()
	}
}

func (s *Stats) Reset() {
	atomic.StoreUint64(&s.Requests, 0)
	atomic.StoreUint64(&s.Success, 0)
	atomic.StoreUint64(&s.Fail, 0)
	atomic.StoreUint64(&s.Bytes, 0)
	s.ServiceTime.Reset()

	s.errMu.Lock()
	s.errors = make(map[string]uint64)
	s.errMu.Unlock()
}

// GetErrorCounts returns a copy of the failure messages seen so far.
func (s *Stats) GetErrorCounts() map[string]uint64 {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	out := make(map[string]uint64, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

func (s *Stats) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

func (s *Stats) serviceMs(q float64) float64 {
	return float64(s.ServiceTime.ValueAtQuantile(q)) / 1000.0
}

func (s *Stats) GetP50Service() float64 { return s.serviceMs(50) }
func (s *Stats) GetP90Service() float64 { return s.serviceMs(90) }
func (s *Stats) GetP95Service() float64 { return s.serviceMs(95) }
func (s *Stats) GetP99Service() float64 { return s.serviceMs(99) }

// AvgServiceMs returns the mean service time in milliseconds
func (s *Stats) AvgServiceMs() float64 {
	return s.ServiceTime.Mean() / 1000.0
}

// MaxServiceMs returns the slowest successful request in milliseconds
func (s *Stats) MaxServiceMs() int64 {
	return s.ServiceTime.Max() / 1000
}
