// Package kernel implements the time-budgeted hybrid scheduler: a
// round-robin dispatcher over cooperative and preemptive activations that
// enforces a per-task cycle budget as a contract and benches repeat
// violators.
package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"ember/abi"
	"ember/machine"
)

// Config sets the scheduler's spawn defaults.
type Config struct {
	// StackBytes is the fixed size of every task stack.
	StackBytes uint64
	// CS and SS are the selector defaults written into fresh contexts.
	// Zero means kernel selectors.
	CS uint64
	SS uint64
}

// DefaultConfig returns the boot defaults.
func DefaultConfig() Config {
	return Config{
		StackBytes: 16 * 1024,
		CS:         machine.SelKernelCode,
		SS:         machine.SelKernelData,
	}
}

// Scheduler owns the ordered task list, the rotation cursor, and the
// notion of which task (if any) is on the core. One instance exists from
// boot; the list lock is never held across a context switch.
type Scheduler struct {
	m   *machine.Machine
	cfg Config

	out OutputRing

	defaultBudget atomic.Uint64

	mu      sync.Mutex
	tasks   []*Task
	cursor  int
	current int // index of the in-flight task, -1 when idle

	// schedCtx is where control resumes after any activation ends.
	schedCtx *machine.Context

	observer atomic.Value // func(Activation)
}

// New wires a scheduler to the machine: trap and timer vectors, plus the
// stub an entry function returns into.
func New(m *machine.Machine, cfg Config) *Scheduler {
	if cfg.StackBytes == 0 {
		cfg.StackBytes = DefaultConfig().StackBytes
	}
	if cfg.CS == 0 {
		cfg.CS = machine.SelKernelCode
	}
	if cfg.SS == 0 {
		cfg.SS = machine.SelKernelData
	}
	k := &Scheduler{
		m:        m,
		cfg:      cfg,
		current:  -1,
		schedCtx: &machine.Context{},
	}
	k.defaultBudget.Store(DefaultBudget)
	m.Handle(abi.VecTimer, k.handleTimer)
	m.Handle(abi.VecSyscall, k.handleSyscall)
	m.OnTaskReturn(func(c *machine.CPU) {
		c.SetReg(machine.RAX, uint64(abi.CallExit))
		c.Int(abi.VecSyscall)
	})
	return k
}

// Output returns the kernel output sink.
func (k *Scheduler) Output() *OutputRing { return &k.out }

// SetObserver installs the hook invoked (outside the lock) with each
// activation's record after enforcement.
func (k *Scheduler) SetObserver(fn func(Activation)) {
	k.observer.Store(fn)
}

// Spawn allocates a dedicated stack, prepares an initial context, and
// appends the task to the rotation. A budget of 0 means the current
// default budget. Stack-allocation failure is fatal to the spawn: it is
// reported and nothing is registered.
func (k *Scheduler) Spawn(name string, budget uint64, entry machine.Entry, arg uint64) error {
	if budget == 0 {
		budget = k.defaultBudget.Load()
	}
	stack, err := k.m.Mem().AllocStack(k.cfg.StackBytes)
	if err != nil {
		k.out.WriteString("cannot spawn " + name)
		return fmt.Errorf("spawn %s: %w", name, err)
	}

	// Pre-write the exit-stub sentinel just below the stack top, so a
	// task that returns normally is equivalent to calling exit.
	sp := stack.Top() - 8
	if err := k.m.Mem().Store64(sp, machine.ExitStubAddr); err != nil {
		k.m.Mem().Free(stack)
		k.out.WriteString("cannot spawn " + name)
		return fmt.Errorf("spawn %s: %w", name, err)
	}

	ctx := &machine.Context{}
	ctx.Regs = machine.RegisterFile{
		RIP:    k.m.RegisterEntry(entry),
		RSP:    sp,
		RDI:    arg,
		CS:     k.cfg.CS,
		SS:     k.cfg.SS,
		RFLAGS: machine.RFlagsDefault,
	}

	t := &Task{
		name:   name,
		budget: budget,
		entry:  entry,
		arg:    arg,
		stack:  stack,
		ctx:    ctx,
		status: StatusWaiting,
	}
	k.mu.Lock()
	k.tasks = append(k.tasks, t)
	k.mu.Unlock()
	return nil
}

// Step is the sole dispatch point: pick the next non-penalized task,
// switch into it, and when its activation ends (trap or preemption)
// measure the elapsed cycles and apply budget enforcement. Returns false
// when nothing was dispatched.
//
// All list bookkeeping happens strictly before or strictly after the
// switch, never around it.
func (k *Scheduler) Step() bool {
	k.m.Poll()

	k.mu.Lock()
	if k.current != -1 {
		k.mu.Unlock()
		panic("kernel: step re-entered with a task in flight")
	}
	n := len(k.tasks)
	if n == 0 {
		k.mu.Unlock()
		return false
	}
	idx := -1
	for i := 0; i < n; i++ {
		j := (k.cursor + i) % n
		t := k.tasks[j]
		if t.cooldown > 0 {
			t.cooldown--
			t.status = StatusPenalty
			continue
		}
		idx = j
		break
	}
	if idx == -1 {
		k.mu.Unlock()
		return false
	}
	t := k.tasks[idx]
	k.current = idx
	k.cursor = (idx + 1) % n
	k.mu.Unlock()

	start := k.m.Cycles()
	k.m.Switch(k.schedCtx, t.ctx)
	elapsed := k.m.Cycles() - start

	k.mu.Lock()
	k.current = -1
	t.lastCost = elapsed
	if !t.gone {
		var cd uint8
		t.status, t.violations, cd = judge(elapsed, t.budget, t.violations)
		if cd > 0 {
			t.cooldown = cd
		}
	}
	rec := Activation{
		Name:       t.name,
		Cost:       elapsed,
		Budget:     t.budget,
		Status:     t.status,
		Violations: t.violations,
		Cooldown:   t.cooldown,
		Exited:     t.gone,
	}
	k.mu.Unlock()

	if v := k.observer.Load(); v != nil {
		if fn, ok := v.(func(Activation)); ok && fn != nil {
			fn(rec)
		}
	}
	return true
}

// Snapshot copies out the diagnostic tuple for every task under the lock
// and releases it before returning; callers render from the copy.
func (k *Scheduler) Snapshot() []TaskInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]TaskInfo, len(k.tasks))
	for i, t := range k.tasks {
		out[i] = TaskInfo{
			Index:      i,
			Name:       t.name,
			LastCost:   t.lastCost,
			Budget:     t.budget,
			Status:     t.status,
			Violations: t.violations,
			Cooldown:   t.cooldown,
		}
	}
	return out
}

// Len reports how many tasks are in the rotation.
func (k *Scheduler) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.tasks)
}
