package machine

// Interrupt lines. Vectors are line + vectorOffset, timer first, matching
// the classic remap of hardware interrupts past the exception range.
const (
	LineTimer = 0

	vectorOffset = 32
	numLines     = 16
)

// IntController models the interrupt controller: level-triggered lines
// that can be raised, masked, and must be acknowledged. A vector stays
// in service from delivery until EOI; while anything is in service no
// further line is delivered, so a handler that forgets to acknowledge
// silences the controller.
type IntController struct {
	raised    uint16
	masked    uint16
	inService uint16
}

// VectorFor returns the CPU vector a line is delivered on.
func (c *IntController) VectorFor(line uint8) uint64 {
	return uint64(line) + vectorOffset
}

// Raise asserts a line. Raising an already-raised line is a no-op: the
// lines are level-triggered.
func (c *IntController) Raise(line uint8) {
	if line < numLines {
		c.raised |= 1 << line
	}
}

// SetMask masks or unmasks a line.
func (c *IntController) SetMask(line uint8, masked bool) {
	if line >= numLines {
		return
	}
	if masked {
		c.masked |= 1 << line
	} else {
		c.masked &^= 1 << line
	}
}

// EOI acknowledges the vector, re-arming delivery.
func (c *IntController) EOI(vec uint64) {
	if vec < vectorOffset || vec >= vectorOffset+numLines {
		return
	}
	c.inService &^= 1 << (vec - vectorOffset)
}

// next picks the highest-priority deliverable line (lowest line number),
// marks it in service, and returns its vector.
func (c *IntController) next() (uint64, bool) {
	if c.inService != 0 {
		return 0, false
	}
	pending := c.raised &^ c.masked
	if pending == 0 {
		return 0, false
	}
	for line := uint8(0); line < numLines; line++ {
		bit := uint16(1) << line
		if pending&bit == 0 {
			continue
		}
		c.raised &^= bit
		c.inService |= bit
		return c.VectorFor(line), true
	}
	return 0, false
}
