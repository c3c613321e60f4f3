package task

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcStat is a point-in-time snapshot of a running child.
type ProcStat struct {
	// RSS is the child's resident set size in bytes.
	RSS uint64
	// CPUPercent is the child's cumulative CPU usage as a percentage.
	CPUPercent float64
}

// Stat inspects the running child process. Fails with ErrNotAlive once the
// child has been joined or before Start.
func (t *Task) Stat() (*ProcStat, error) {
	if !t.IsAlive() {
		return nil, ErrNotAlive
	}

	p, err := process.NewProcess(int32(t.Pid()))
	if err != nil {
		return nil, fmt.Errorf("task: inspect pid %d: %w", t.Pid(), err)
	}
	var st ProcStat
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.RSS = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	return &st, nil
}
