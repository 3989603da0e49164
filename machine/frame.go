package machine

// Frame is the register state the core captures on interrupt or trap
// entry: the interrupted instruction's state, not the handler's own.
// Handlers may rewrite it; whatever the frame holds when the handler
// returns is what the return-from-interrupt loads into the core.
type Frame struct {
	// Regs is the interrupted state as captured at entry.
	Regs RegisterFile

	saved  *Context
	target *Context
}

// SaveTo copies the captured state into ctx so the interrupted activation
// can be resumed later at exactly the interrupted point. The stored flags
// always have the interrupt-enable bit set, so a later resume never comes
// back with interrupts permanently masked.
func (f *Frame) SaveTo(ctx *Context) {
	ctx.Regs = f.Regs
	ctx.Regs.RFLAGS |= FlagIF
	f.saved = ctx
}

// Restore overwrites the frame with ctx's state, so the return-from-
// interrupt resumes ctx instead of the interrupted activation. The loaded
// flags have the interrupt-enable bit forced set.
func (f *Frame) Restore(ctx *Context) {
	f.Regs = ctx.Regs
	f.Regs.RFLAGS |= FlagIF
	f.target = ctx
}
