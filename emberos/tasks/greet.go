package tasks

import (
	"fmt"

	"ember/machine"
	"ember/sys"
)

// greet prints a fixed number of greetings, one per turn, then exits.
// Arg is the number of rounds; 0 means one.
func greet(cfg Config) machine.Entry {
	return func(c *machine.CPU, arg uint64) {
		rounds := arg
		if rounds == 0 {
			rounds = 1
		}
		for i := uint64(1); i <= rounds; i++ {
			sys.Print(c, fmt.Sprintf("%s: hello (%d/%d)\n", cfg.Name, i, rounds))
			c.Work(200)
			sys.Yield(c)
		}
		sys.Print(c, cfg.Name+": done\n")
		sys.Exit(c)
	}
}
