// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procstats reads resource usage of encoder processes.
package procstats

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// Stats is a point-in-time view of one process.
type Stats struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
	Children   int     `json:"children"`
}

// Collect samples pid. CPU is averaged over the process lifetime.
func Collect(ctx context.Context, pid int) (Stats, error) {
	if pid <= 0 {
		return Stats{}, fmt.Errorf("invalid pid %d", pid)
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return Stats{}, fmt.Errorf("open process %d: %w", pid, err)
	}

	s := Stats{PID: pid}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		s.CPUPercent = cpu
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("memory info for %d: %w", pid, err)
	}
	s.RSSBytes = mem.RSS
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		s.Threads = n
	}
	if kids, err := p.ChildrenWithContext(ctx); err == nil {
		s.Children = len(kids)
	}
	return s, nil
}
