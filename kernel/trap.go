package kernel

import (
	"ember/abi"
	"ember/machine"
)

// handleSyscall services the trap vector. The request code arrives in
// RAX, its two arguments in RDI and RSI. print returns to the caller;
// yield and exit end the activation. Unrecognized requests are silently
// ignored and the task resumes unaffected.
func (k *Scheduler) handleSyscall(f *machine.Frame) {
	switch abi.Call(f.Regs.RAX) {
	case abi.CallPrint:
		k.sysPrint(f.Regs.RDI, f.Regs.RSI)
	case abi.CallYield:
		k.suspendCurrent(f, true)
	case abi.CallExit:
		k.suspendCurrent(f, false)
	}
}

// sysPrint forwards len bytes at ptr from the task's own memory to the
// output sink. A pointer the task does not own is ignored; the task
// resumes either way, with its budget clock still running.
func (k *Scheduler) sysPrint(ptr, n uint64) {
	b, err := k.m.Mem().Translate(ptr, n)
	if err != nil {
		return
	}
	k.out.Write(b)
}

// suspendCurrent ends the in-flight activation: the trap frame's state is
// either preserved in the task's context (keep) or discarded along with
// the task (exit), and the frame is pointed back at the scheduler's
// resumption point. Shared by the trap path and the preemption path.
func (k *Scheduler) suspendCurrent(f *machine.Frame, keep bool) {
	k.mu.Lock()
	cur := k.current
	if cur < 0 || cur >= len(k.tasks) {
		k.mu.Unlock()
		return
	}
	t := k.tasks[cur]
	if !keep {
		k.tasks = append(k.tasks[:cur], k.tasks[cur+1:]...)
		if k.cursor > cur {
			k.cursor--
		}
		if n := len(k.tasks); n == 0 || k.cursor >= n {
			k.cursor = 0
		}
		t.gone = true
	}
	k.mu.Unlock()

	if keep {
		f.SaveTo(t.ctx)
	} else {
		k.m.Mem().Free(t.stack)
	}
	f.Restore(k.schedCtx)
}
