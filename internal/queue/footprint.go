package queue

import (
	"runtime"

	"github.com/prometheus/procfs"
)

// FootprintFunc reports the engine's current resident memory in bytes,
// attached to each page artifact as the attempt's resource cost.
type FootprintFunc func() int64

// ProcessRSS reads the process resident set from procfs, falling back to
// the Go runtime's reserved memory on platforms without /proc.
func ProcessRSS() int64 {
	if p, err := procfs.Self(); err == nil {
		if stat, err := p.Stat(); err == nil {
			return int64(stat.ResidentMemory())
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Sys)
}
