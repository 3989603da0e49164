package machine

// Context is a resumable snapshot of the core: every register a running
// activation can observe, captured at a switch boundary.
//
// A context is always in exactly one of two states: being written by a
// switch-out, or holding a valid resumable CPU state. It is never observed
// half-written; the machine only reads or writes it with the owning side
// quiescent.
//
// A context is resumable if a suspended activation owns it (it was filled
// by Switch or Frame.SaveTo), or if its RIP is a registered entry address
// (a fresh spawn that has never run). Switching into anything else is a
// machine fault.
type Context struct {
	Regs RegisterFile

	// gate wakes the parked owner of this context. Non-nil only while an
	// activation is suspended in it.
	gate chan struct{}
}
