package tasks

import (
	"ember/kernel"
	"ember/machine"
	"ember/sys"
)

// hog deliberately overruns its budget every turn. Three turns in a row
// put it on the bench; it is the standing demo of the enforcement path.
func hog(cfg Config) machine.Entry {
	return func(c *machine.CPU, arg uint64) {
		work := arg
		if work == 0 {
			work = 2 * kernel.DefaultBudget
		}
		for {
			c.Work(work)
			sys.Yield(c)
		}
	}
}
