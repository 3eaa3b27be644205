package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-bind/common"
)

// Report is the summary of one profiler interval.
type Report struct {
	Frames    int
	Elapsed   time.Duration
	FPS       float64
	HeapMB    float64
	SysMB     float64
	AllocRate float64 // MB/s
	GCCount   uint32
	// LastPause and MaxPause are GC pauses; MaxPause covers the collections since the last report.
	LastPause time.Duration
	MaxPause  time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Reports are logged at Info through common.Logger once per interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	readMem        func(*runtime.MemStats)
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Report
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		readMem:        runtime.ReadMemStats,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// When the update interval has elapsed it logs a Report together with attrs, which callers use to
// attach their own counters (the renderer's binding stats, for example).
//
// Parameters:
//   - attrs: extra attributes logged with the report
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(attrs ...slog.Attr) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	p.readMem(&p.memStats)
	r := Report{
		Frames:  p.frameCount,
		Elapsed: elapsed,
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		// Alloc is live heap; Sys is what the process obtained from the OS.
		HeapMB:    float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:     float64(p.memStats.Sys) / 1024 / 1024,
		AllocRate: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:   p.memStats.NumGC,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		r.LastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := time.Duration(p.memStats.PauseNs[i%256]); pause > r.MaxPause {
				r.MaxPause = pause
			}
		}
	}

	args := make([]any, 0, 8+len(attrs))
	args = append(args,
		slog.Float64("fps", r.FPS),
		slog.Float64("heapMB", r.HeapMB),
		slog.Float64("allocMBps", r.AllocRate),
		slog.Group("gc",
			slog.Uint64("count", uint64(r.GCCount)),
			slog.Duration("last", r.LastPause),
			slog.Duration("max", r.MaxPause)),
		slog.Float64("sysMB", r.SysMB),
	)
	for _, a := range attrs {
		args = append(args, a)
	}
	common.Logger().Info("frame stats", args...)

	p.last = r
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report, the zero Report before the first.
func (p *Profiler) Last() Report {
	return p.last
}
