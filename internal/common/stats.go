package common

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for sweep progress.
type Stats struct {
	PointsComputed uint64 // Grid points solved
	Predictions    uint64 // Per-band predictions produced
	NoMode         uint64 // Predictions with no usable mode
	LowConfidence  uint64 // Predictions flagged low-confidence
	PointLatency   uint64 // Latest point compute time, ns

	Total uint64 // Expected points; 0 when unknown

	// Reporter state
	running    atomic.Bool
	stopCh     chan struct{}
	stopOnce   sync.Once
	out        io.Writer
	interval   time.Duration
	lastPoints uint64
	lastTime   time.Time

	// Moving average of points per second
	rateWindow []float64
	rateIndex  int
}

// NewStats creates a Stats reporting to stdout every 500ms.
func NewStats() *Stats {
	return &Stats{
		stopCh:     make(chan struct{}),
		out:        os.Stdout,
		interval:   500 * time.Millisecond,
		rateWindow: make([]float64, 10), // 5 seconds at the default interval
	}
}

// SetOutput redirects progress lines; nil silences the reporter.
func (s *Stats) SetOutput(w io.Writer) {
	s.out = w
}

// SetTotal records the expected number of points for percentage output.
func (s *Stats) SetTotal(n uint64) {
	atomic.StoreUint64(&s.Total, n)
}

// AddPoint records one solved point and its compute time.
func (s *Stats) AddPoint(latency time.Duration) {
	atomic.AddUint64(&s.PointsComputed, 1)
	atomic.StoreUint64(&s.PointLatency, uint64(latency))
}

// AddPrediction records one per-band prediction outcome.
func (s *Stats) AddPrediction(noMode, lowConfidence bool) {
	atomic.AddUint64(&s.Predictions, 1)
	if noMode {
		atomic.AddUint64(&s.NoMode, 1)
	}
	if lowConfidence {
		atomic.AddUint64(&s.LowConfidence, 1)
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Points, Predictions, NoMode, LowConfidence, Total uint64
	Latency                                           time.Duration
}

// Snapshot atomically reads every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Points:        atomic.LoadUint64(&s.PointsComputed),
		Predictions:   atomic.LoadUint64(&s.Predictions),
		NoMode:        atomic.LoadUint64(&s.NoMode),
		LowConfidence: atomic.LoadUint64(&s.LowConfidence),
		Total:         atomic.LoadUint64(&s.Total),
		Latency:       time.Duration(atomic.LoadUint64(&s.PointLatency)),
	}
}

// StartReporter starts a goroutine printing progress at each interval.
func (s *Stats) StartReporter() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.lastTime = time.Now()
	s.lastPoints = 0
	go s.reporterLoop()
}

// StopReporter stops the reporter goroutine.
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.printStatus(now)
		}
	}
}

func (s *Stats) printStatus(now time.Time) {
	if s.out == nil {
		return
	}
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	snap := s.Snapshot()
	rate := float64(snap.Points-s.lastPoints) / elapsed

	s.rateWindow[s.rateIndex] = rate
	s.rateIndex = (s.rateIndex + 1) % len(s.rateWindow)
	var sum float64
	var n int
	for _, r := range s.rateWindow {
		if r > 0 {
			sum += r
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}

	fmt.Fprintf(s.out, "[Progress] %s | Rate: %.1f pts/s (avg: %.1f) | Point: %.2f ms | No-mode: %d | Low-conf: %d\n",
		progress(snap.Points, snap.Total),
		rate,
		avg,
		float64(snap.Latency)/float64(time.Millisecond),
		snap.NoMode,
		snap.LowConfidence,
	)

	s.lastPoints = snap.Points
	s.lastTime = now
}

func progress(done, total uint64) string {
	if total == 0 {
		return fmt.Sprintf("Points: %d", done)
	}
	return fmt.Sprintf("Points: %d/%d (%.1f%%)", done, total, 100*float64(done)/float64(total))
}

// Reset clears every counter.
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.PointsComputed, 0)
	atomic.StoreUint64(&s.Predictions, 0)
	atomic.StoreUint64(&s.NoMode, 0)
	atomic.StoreUint64(&s.LowConfidence, 0)
	atomic.StoreUint64(&s.PointLatency, 0)
	s.lastPoints = 0
	s.lastTime = time.Now()
	for i := range s.rateWindow {
		s.rateWindow[i] = 0
	}
	s.rateIndex = 0
}
