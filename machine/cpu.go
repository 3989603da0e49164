package machine

// CPU is the handle task code issues operations through. Every operation
// is one or more instructions on the core: it may consume cycles, and the
// boundary between two operations is where an interrupt can land.
type CPU struct {
	m *Machine
}

// Work burns n cycles of computation. Preemption can split it anywhere.
func (c *CPU) Work(n uint64) {
	if n == 0 {
		return
	}
	c.m.advance(n)
}

// Reg reads a general-purpose register of the live register file.
func (c *CPU) Reg(r Reg) uint64 {
	v := c.m.regs.Get(r)
	c.m.advance(0)
	return v
}

// SetReg writes a general-purpose register of the live register file.
func (c *CPU) SetReg(r Reg, v uint64) {
	c.m.regs.Set(r, v)
	c.m.advance(0)
}

// RSP returns the live stack pointer.
func (c *CPU) RSP() uint64 { return c.m.regs.RSP }

// StackPush copies b onto the task's own stack, moving RSP down, and
// returns the address of the staged bytes. It fails when the push would
// leave the stack region.
func (c *CPU) StackPush(b []byte) (uint64, error) {
	n := uint64(len(b))
	addr := c.m.regs.RSP - n
	dst, err := c.m.mem.Translate(addr, n)
	if err != nil {
		return 0, err
	}
	copy(dst, b)
	c.m.regs.RSP = addr
	c.m.advance(0)
	return addr, nil
}

// StackPop releases n bytes pushed with StackPush.
func (c *CPU) StackPop(n uint64) {
	c.m.regs.RSP += n
	c.m.advance(0)
}

// Int raises a software interrupt on vec: the synchronous, task-initiated
// transfer into kernel code. Whether it returns depends on the request
// the handler finds in the registers.
func (c *CPU) Int(vec uint64) {
	c.m.advance(0)
	c.m.dispatch(vec)
}
