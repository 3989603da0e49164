package monitor

import (
	"slices"
	"sync"
	"sync/atomic"

	"ember/kernel"
)

// snapshotCell holds the latest published board state behind a sequence
// counter. The counter only moves when the drawable state actually
// changed, so the renderer can skip idle frames.
type snapshotCell struct {
	seq atomic.Uint32

	mu     sync.Mutex
	tasks  []kernel.TaskInfo
	cycles uint64
	upSecs uint64
}

// publish stores the table, cycle counter, and uptime (whole seconds).
// The sequence advances only if something differs from the stored state.
func (c *snapshotCell) publish(tasks []kernel.TaskInfo, cycles, upSecs uint64) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cycles == c.cycles && upSecs == c.upSecs && slices.Equal(tasks, c.tasks) {
		return c.seq.Load()
	}
	c.tasks = tasks
	c.cycles = cycles
	c.upSecs = upSecs
	return c.seq.Add(1)
}

// read returns the current state and its sequence number.
func (c *snapshotCell) read() (uint32, []kernel.TaskInfo, uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Load(), c.tasks, c.cycles, c.upSecs
}
