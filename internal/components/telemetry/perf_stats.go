package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

const (
	report_perf_cpu        = "perf.cpu-percent"
	report_perf_allocated  = "perf.allocated-mb"
	report_perf_goroutines = "perf.goroutines"
)

// SamplePerfStats reports cpu usage, heap size and goroutine count once.
func SamplePerfStats(ctx context.Context, tel API) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// interval 0 compares against the previous call.
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(usage) == 0 {
		tel.ReportWarning(report_perf_cpu, err)
	} else {
		tel.ReportCount(report_perf_cpu, int64(usage[0]))
	}
	tel.ReportCount(report_perf_allocated, int64(memStats.Alloc/1_000_000))
	tel.ReportCount(report_perf_goroutines, int64(runtime.NumGoroutine()))
}

// InstrumentPerfStats samples perf stats every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration, tel API) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				SamplePerfStats(ctx, tel)
			case <-ctx.Done():
				return
			}
		}
	}()
}
