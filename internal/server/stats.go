package server

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// processStats reports this process's resource use for the health endpoint.
type processStats struct {
	proc *process.Process
}

func newProcessStats() *processStats {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &processStats{}
	}
	return &processStats{proc: proc}
}

// fill adds whatever figures are available to m. Missing figures are left out.
func (p *processStats) fill(m map[string]any) {
	if p.proc == nil {
		return
	}
	if mem, err := p.proc.MemoryInfo(); err == nil {
		m["rss_bytes"] = mem.RSS
	}
	if threads, err := p.proc.NumThreads(); err == nil {
		m["threads"] = threads
	}
	if cpu, err := p.proc.CPUPercent(); err == nil {
		m["cpu_percent"] = cpu
	}
}
