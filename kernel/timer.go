package kernel

import (
	"ember/abi"
	"ember/machine"
)

// handleTimer is the preemption path. Every tick is acknowledged so later
// ticks keep arriving; if a task is on the core its activation is
// forcibly ended through the same save/restore mechanics as a yield. With
// no task in flight the acknowledgement is the whole handler.
func (k *Scheduler) handleTimer(f *machine.Frame) {
	defer k.m.Intc().EOI(abi.VecTimer)

	k.mu.Lock()
	cur := k.current
	if cur < 0 || cur >= len(k.tasks) {
		k.mu.Unlock()
		return
	}
	t := k.tasks[cur]
	k.mu.Unlock()

	f.SaveTo(t.ctx)
	f.Restore(k.schedCtx)
}
