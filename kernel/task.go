package kernel

import "ember/machine"

// Status is the outcome of a task's most recent activation.
type Status uint8

const (
	// StatusWaiting means the task has not been dispatched yet.
	StatusWaiting Status = iota
	// StatusSuccess means the last activation stayed within budget.
	StatusSuccess
	// StatusFailure means the last activation overran its budget.
	StatusFailure
	// StatusPenalty means the task is benched after repeated overruns.
	StatusPenalty
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusPenalty:
		return "penalty"
	default:
		return "unknown"
	}
}

// Icon returns the status column the monitor draws, in the style of the
// boot console.
func (s Status) Icon() string {
	switch s {
	case StatusSuccess:
		return "[ PASS ]"
	case StatusFailure:
		return "[ FAIL ]"
	case StatusPenalty:
		return "[ BENCH]"
	default:
		return "[ .... ]"
	}
}

// Task is one execution unit: identity, contract, owned stack, and the
// context it resumes from. Created at spawn, mutated every activation,
// destroyed only by its own exit trap.
type Task struct {
	name   string
	budget uint64
	entry  machine.Entry
	arg    uint64

	stack *machine.Region
	ctx   *machine.Context

	lastCost   uint64
	violations uint8
	cooldown   uint8
	status     Status

	// gone is set by the exit trap: the task left the rotation and its
	// context must never be loaded again.
	gone bool
}

// TaskInfo is the read-only diagnostic tuple for one task, copied out
// under the scheduler lock.
type TaskInfo struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	LastCost   uint64 `json:"last_cost"`
	Budget     uint64 `json:"budget"`
	Status     Status `json:"status"`
	Violations uint8  `json:"violations"`
	Cooldown   uint8  `json:"cooldown"`
}

// Activation is the record handed to the observer after each activation's
// enforcement pass.
type Activation struct {
	Name       string
	Cost       uint64
	Budget     uint64
	Status     Status
	Violations uint8
	Cooldown   uint8
	Exited     bool
}
