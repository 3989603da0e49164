// Package machine emulates the single core the kernel schedules on: a
// fixed register file, region-based memory, a cycle counter, a timer, an
// interrupt controller, and the one-way control-transfer mechanics.
//
// Activations run as parked goroutines with strict single-owner handoff,
// so "concurrency" is exactly the time-sliced interleaving of a single
// core. Interrupts are delivered at operation boundaries, which is the
// machine's notion of "between any two instructions".
package machine

import "runtime"

// Entry is a task entry point: the CPU handle for issuing operations and
// the single 64-bit spawn argument, delivered in RDI.
type Entry func(cpu *CPU, arg uint64)

// Config sets the machine geometry.
type Config struct {
	// MemBytes is the size of the data arena stacks are carved from.
	MemBytes uint64
	// TimerCycles is the period of the timer line in cycles. 0 leaves the
	// timer unwired.
	TimerCycles uint64
}

// DefaultConfig returns the geometry the OS boots with.
func DefaultConfig() Config {
	return Config{
		MemBytes:    1 << 20,
		TimerCycles: 0,
	}
}

// Machine is the virtual core plus its devices. All execution on it is
// serialized by context handoff; only one goroutine owns the core at any
// instant.
type Machine struct {
	mem  *Memory
	intc *IntController

	regs    RegisterFile
	cycles  uint64
	current *Context

	timerCycles uint64
	timerNext   uint64

	handlers map[uint64]func(*Frame)

	entries   map[uint64]Entry
	nextEntry uint64

	onTaskReturn func(*CPU)

	// inIRQ inhibits nested delivery while a handler runs, the way the
	// gate clears IF on entry.
	inIRQ bool
}

// New builds a halted machine.
func New(cfg Config) *Machine {
	if cfg.MemBytes == 0 {
		cfg.MemBytes = DefaultConfig().MemBytes
	}
	m := &Machine{
		mem:         newMemory(cfg.MemBytes),
		intc:        &IntController{},
		timerCycles: cfg.TimerCycles,
		timerNext:   cfg.TimerCycles,
		handlers:    map[uint64]func(*Frame){},
		entries:     map[uint64]Entry{},
		nextEntry:   TextBase + 16,
	}
	m.regs.RFLAGS = RFlagsDefault
	m.regs.CS = SelKernelCode
	m.regs.SS = SelKernelData
	return m
}

// Mem returns the machine's data memory.
func (m *Machine) Mem() *Memory { return m.mem }

// Intc returns the interrupt controller.
func (m *Machine) Intc() *IntController { return m.intc }

// Cycles returns the cycle counter, the machine's rdtsc.
func (m *Machine) Cycles() uint64 { return m.cycles }

// Handle installs the handler for a vector.
func (m *Machine) Handle(vec uint64, fn func(*Frame)) {
	m.handlers[vec] = fn
}

// OnTaskReturn installs the hook the exit stub lands in when an entry
// function returns normally.
func (m *Machine) OnTaskReturn(fn func(*CPU)) {
	m.onTaskReturn = fn
}

// RegisterEntry assigns a text address to an entry function. A fresh
// context whose RIP is that address starts executing there on its first
// switch-in.
func (m *Machine) RegisterEntry(fn Entry) uint64 {
	addr := m.nextEntry
	m.nextEntry += 16
	m.entries[addr] = fn
	return addr
}

// Switch captures the live register state into save exactly as it stands
// at the call boundary (with the interrupt-enable bit forced set in the
// stored flags), loads load into the core, and transfers control. It does
// not return to its caller until some later transfer loads save again.
//
// Delivery is structurally inhibited for the whole copy-and-switch
// sequence: no machine operation runs between the capture and the
// transfer.
func (m *Machine) Switch(save, load *Context) {
	if save == nil || load == nil {
		panic("machine: switch with nil context")
	}
	save.Regs = m.regs
	save.Regs.RFLAGS |= FlagIF
	gate := make(chan struct{}, 1)
	save.gate = gate
	m.activate(load)
	<-gate
}

// Poll delivers one pending interrupt, if any is deliverable. The kernel
// calls this from its outer loop so device lines raised while no task is
// on the core still get serviced.
func (m *Machine) Poll() {
	m.poll()
}

// activate loads ctx into the core and hands the core to its owner:
// either the goroutine parked in it, or a fresh goroutine started at its
// registered entry address.
func (m *Machine) activate(ctx *Context) {
	m.regs = ctx.Regs
	m.current = ctx
	if g := ctx.gate; g != nil {
		ctx.gate = nil
		g <- struct{}{}
		return
	}
	if entry, ok := m.entries[ctx.Regs.RIP]; ok {
		arg := ctx.Regs.RDI
		go m.runEntry(entry, arg)
		return
	}
	panic("machine: switch into dead context")
}

func (m *Machine) runEntry(entry Entry, arg uint64) {
	cpu := &CPU{m: m}
	entry(cpu, arg)

	// The entry function fell off its end. The return slot on a fresh
	// stack holds the exit-stub sentinel; returning anywhere else is a
	// jump to garbage.
	ret, err := m.mem.Load64(m.regs.RSP)
	if err != nil || ret != ExitStubAddr {
		panic("machine: task returned with corrupt stack")
	}
	m.regs.RIP = ExitStubAddr
	if m.onTaskReturn == nil {
		panic("machine: no task-return hook installed")
	}
	m.onTaskReturn(cpu)
	panic("machine: exit stub resumed")
}

// advance moves the cycle counter, raising and delivering timer ticks at
// the boundaries crossed on the way.
func (m *Machine) advance(n uint64) {
	for {
		step := n
		if m.timerCycles > 0 && m.timerNext > m.cycles {
			if d := m.timerNext - m.cycles; d < step {
				step = d
			}
		}
		m.cycles += step
		n -= step
		if m.timerCycles > 0 && m.cycles >= m.timerNext {
			m.timerNext += m.timerCycles
			m.intc.Raise(LineTimer)
		}
		m.poll()
		if n == 0 {
			return
		}
	}
}

func (m *Machine) poll() {
	if m.inIRQ || m.regs.RFLAGS&FlagIF == 0 {
		return
	}
	vec, ok := m.intc.next()
	if !ok {
		return
	}
	m.dispatch(vec)
}

// dispatch runs the handler for vec against a frame holding the
// interrupted state, then performs the return-from-interrupt: whatever
// the frame holds is loaded back into the core. If the handler redirected
// the frame at a different context, control transfers there; the
// interrupted activation either parks in the context the handler saved it
// to, or ends here if the handler discarded it.
func (m *Machine) dispatch(vec uint64) {
	h := m.handlers[vec]
	if h == nil {
		return
	}
	f := &Frame{Regs: m.regs}
	m.inIRQ = true
	h(f)
	m.inIRQ = false

	if f.target == nil || f.target == m.current {
		m.regs = f.Regs
		return
	}
	if f.saved != nil {
		gate := make(chan struct{}, 1)
		f.saved.gate = gate
		m.activate(f.target)
		<-gate
		return
	}
	m.activate(f.target)
	runtime.Goexit()
}
