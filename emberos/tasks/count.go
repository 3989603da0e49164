package tasks

import (
	"fmt"

	"ember/machine"
	"ember/sys"
)

// count keeps a running total in a callee-saved register and reports it
// every few turns. The register survives every switch-out, so the
// printed sequence doubles as a context-integrity check.
func count(cfg Config) machine.Entry {
	return func(c *machine.CPU, _ uint64) {
		c.SetReg(machine.R12, 0)
		for turn := uint64(1); ; turn++ {
			c.SetReg(machine.R12, c.Reg(machine.R12)+1)
			c.Work(300)
			if turn%8 == 0 {
				sys.Print(c, fmt.Sprintf("%s: at %d\n", cfg.Name, c.Reg(machine.R12)))
			}
			sys.Yield(c)
		}
	}
}

// spin burns a fixed slice of work each turn and yields. Arg is the
// per-turn cost in cycles; 0 means 500.
func spin(cfg Config) machine.Entry {
	return func(c *machine.CPU, arg uint64) {
		work := arg
		if work == 0 {
			work = 500
		}
		for {
			c.Work(work)
			sys.Yield(c)
		}
	}
}
