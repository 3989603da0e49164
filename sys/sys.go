// Package sys holds the user-side trap wrappers task code calls. Each
// wrapper loads the request code and arguments into the convention
// registers and raises the trap vector.
package sys

import (
	"ember/abi"
	"ember/machine"
)

// Print stages s in the task's own stack memory and asks the kernel to
// forward it to the output sink. It returns to the caller; the
// activation's budget clock keeps running throughout.
func Print(c *machine.CPU, s string) {
	if len(s) == 0 {
		return
	}
	addr, err := c.StackPush([]byte(s))
	if err != nil {
		// Not enough stack for the bytes; nothing to hand the kernel.
		return
	}
	c.SetReg(machine.RAX, uint64(abi.CallPrint))
	c.SetReg(machine.RDI, addr)
	c.SetReg(machine.RSI, uint64(len(s)))
	c.Int(abi.VecSyscall)
	c.StackPop(uint64(len(s)))
}

// Yield voluntarily ends the current activation. It returns when the
// scheduler dispatches the task again.
func Yield(c *machine.CPU) {
	c.SetReg(machine.RAX, uint64(abi.CallYield))
	c.Int(abi.VecSyscall)
}

// Exit removes the task from the scheduler entirely. It does not return.
func Exit(c *machine.CPU) {
	c.SetReg(machine.RAX, uint64(abi.CallExit))
	c.Int(abi.VecSyscall)
	panic("sys: exit returned")
}
