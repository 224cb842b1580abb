package profiler

import (
	"log"
	"runtime"
	"time"
)

// Stats is the snapshot computed at the end of each profiling interval.
type Stats struct {
	// FramesPerSecond is the number of evaluated frames per second over the interval.
	FramesPerSecond float64
	// AvgEvalTime is the mean wall time spent evaluating one frame.
	AvgEvalTime time.Duration
	// MaxEvalTime is the slowest frame evaluation in the interval.
	MaxEvalTime time.Duration
	// AvgInstances is the mean number of instances evaluated per frame.
	AvgInstances float64
	// HeapMB is the live heap size in megabytes.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in megabytes per second.
	AllocRateMB float64
	// GCCount is the cumulative number of completed GC cycles.
	GCCount uint32
	// LastPauseUs and MaxPauseUs are the latest and the largest GC pause in the interval, in microseconds.
	LastPauseUs, MaxPauseUs uint64
}

// Profiler tracks pose evaluation timing and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	instanceSum    uint64
	evalSum        time.Duration
	evalMax        time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
	quiet          bool
}

// ProfilerOption is a functional option for configuring a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often statistics are computed and logged.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerOption: a function that sets the interval
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithQuiet computes statistics without logging them.
//
// Parameters:
//   - quiet: true to suppress the log line
//
// Returns:
//   - ProfilerOption: a function that sets quiet mode
func WithQuiet(quiet bool) ProfilerOption {
	return func(p *Profiler) {
		p.quiet = quiet
	}
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
	for _, opt := range options {
		opt(p)
	}
	runtime.ReadMemStats(&p.memStats)
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return p
}

// Tick should be called once per evaluated frame.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: frame rate, evaluation time, instance count, heap usage, allocation rate and GC pauses.
//
// Parameters:
//   - evalTime: the wall time spent evaluating this frame
//   - instances: the number of instances evaluated this frame
//
// Returns:
//   - bool: true if stats were computed this tick, false otherwise
func (p *Profiler) Tick(evalTime time.Duration, instances uint32) bool {
	p.frameCount++
	p.instanceSum += uint64(instances)
	p.evalSum += evalTime
	p.evalMax = max(p.evalMax, evalTime)

	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)

	s := Stats{
		FramesPerSecond: float64(p.frameCount) / elapsed.Seconds(),
		AvgEvalTime:     p.evalSum / time.Duration(p.frameCount),
		MaxEvalTime:     p.evalMax,
		AvgInstances:    float64(p.instanceSum) / float64(p.frameCount),
		HeapMB:          float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:     float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:         p.memStats.NumGC,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if !p.quiet {
		log.Printf("[Profiler] Frames/s: %.2f | Eval: avg %s, max %s | Instances: %.1f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs)",
			s.FramesPerSecond, s.AvgEvalTime, s.MaxEvalTime, s.AvgInstances, s.HeapMB, s.AllocRateMB, s.GCCount, s.LastPauseUs, s.MaxPauseUs)
	}

	p.last = s
	p.frameCount = 0
	p.instanceSum = 0
	p.evalSum = 0
	p.evalMax = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics computed at the end of the most recent interval.
//
// Returns:
//   - Stats: the last snapshot, zero before the first interval completes
func (p *Profiler) Last() Stats {
	return p.last
}
