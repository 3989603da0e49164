// Package abi defines the kernel/user contract: interrupt vectors, trap
// call numbers, and the registers they travel in.
//
// The convention follows the original machine: the request code rides in
// RAX, the first two arguments in RDI and RSI. print returns to the
// caller; yield and exit do not.
package abi

// Interrupt vectors. Hardware lines are remapped past the CPU exception
// range, timer first; the syscall gate sits at the legacy 0x80 slot.
const (
	VecBase    = 32
	VecTimer   = VecBase + 0
	VecSyscall = 0x80
)

// Call identifies a trap request.
type Call uint64

const (
	CallPrint Call = iota + 1
	CallYield
	CallExit
)

func (c Call) String() string {
	switch c {
	case CallPrint:
		return "print"
	case CallYield:
		return "yield"
	case CallExit:
		return "exit"
	default:
		return "unknown"
	}
}
