package kernel

// Budget enforcement is a three-strikes leaky bucket: isolated overruns
// are tolerated and forgiven one-for-one by later successes; three
// consecutive overruns bench the task for five eligible turns.
const (
	violationLimit = 3
	penaltyTurns   = 5
)

// Default budget for tasks spawned with budget 0, adjustable at runtime
// with a clamped floor.
const (
	DefaultBudget  = 2_500_000
	minBudgetFloor = 500_000
)

// judge applies the post-activation policy to one elapsed measurement.
// Counters clamp: violations never go negative, the cooldown is set to a
// fixed value and never stacked.
func judge(elapsed, budget uint64, violations uint8) (status Status, newViolations, cooldown uint8) {
	if elapsed <= budget {
		if violations > 0 {
			violations--
		}
		return StatusSuccess, violations, 0
	}
	violations++
	if violations >= violationLimit {
		return StatusFailure, 0, penaltyTurns
	}
	return StatusFailure, violations, 0
}

// AdjustDefaultBudget raises or lowers the default budget by delta
// cycles. Lowering never takes it below the floor.
func (k *Scheduler) AdjustDefaultBudget(delta int64) uint64 {
	for {
		cur := k.defaultBudget.Load()
		var next uint64
		if delta < 0 {
			dec := uint64(-delta)
			if cur <= minBudgetFloor || cur-minBudgetFloor < dec {
				next = minBudgetFloor
			} else {
				next = cur - dec
			}
		} else {
			next = cur + uint64(delta)
		}
		if k.defaultBudget.CompareAndSwap(cur, next) {
			return next
		}
	}
}
