package machine

// RegisterFile is the full integer state of the virtual core. The field
// order mirrors the hardware push order on interrupt entry: the fifteen
// general-purpose registers first, then the frame the gate pushes
// automatically (RIP, CS, RFLAGS, RSP, SS).
type RegisterFile struct {
	R15, R14, R13, R12, R11, R10, R9, R8 uint64
	RBP, RDI, RSI, RDX, RCX, RBX, RAX    uint64

	RIP    uint64
	CS     uint64
	RFLAGS uint64
	RSP    uint64
	SS     uint64
}

// FlagIF is the interrupt-enable bit in RFLAGS.
const FlagIF = 1 << 9

// RFlagsDefault is the initial flags word for a fresh context:
// interrupts enabled, reserved bit 1 set.
const RFlagsDefault = 0x202

// Segment selectors, laid out as the boot GDT orders them. User selectors
// carry RPL 3.
const (
	SelKernelCode = 0x08
	SelKernelData = 0x10
	SelUserData   = 0x1b
	SelUserCode   = 0x23
)

// Reg names a register for indexed access.
type Reg uint8

const (
	RAX Reg = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// GPRs lists every general-purpose register once, in a stable order.
var GPRs = [...]Reg{RAX, RBX, RCX, RDX, RSI, RDI, RBP, R8, R9, R10, R11, R12, R13, R14, R15}

// Get returns the named general-purpose register.
func (r *RegisterFile) Get(reg Reg) uint64 {
	switch reg {
	case RAX:
		return r.RAX
	case RBX:
		return r.RBX
	case RCX:
		return r.RCX
	case RDX:
		return r.RDX
	case RSI:
		return r.RSI
	case RDI:
		return r.RDI
	case RBP:
		return r.RBP
	case R8:
		return r.R8
	case R9:
		return r.R9
	case R10:
		return r.R10
	case R11:
		return r.R11
	case R12:
		return r.R12
	case R13:
		return r.R13
	case R14:
		return r.R14
	case R15:
		return r.R15
	}
	return 0
}

// Set writes the named general-purpose register.
func (r *RegisterFile) Set(reg Reg, v uint64) {
	switch reg {
	case RAX:
		r.RAX = v
	case RBX:
		r.RBX = v
	case RCX:
		r.RCX = v
	case RDX:
		r.RDX = v
	case RSI:
		r.RSI = v
	case RDI:
		r.RDI = v
	case RBP:
		r.RBP = v
	case R8:
		r.R8 = v
	case R9:
		r.R9 = v
	case R10:
		r.R10 = v
	case R11:
		r.R11 = v
	case R12:
		r.R12 = v
	case R13:
		r.R13 = v
	case R14:
		r.R14 = v
	case R15:
		r.R15 = v
	}
}
