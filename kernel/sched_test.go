package kernel

import (
	"testing"

	"ember/abi"
	"ember/machine"
	"ember/sys"
)

func newTestKernel(timerCycles uint64) (*machine.Machine, *Scheduler) {
	m := machine.New(machine.Config{MemBytes: 1 << 20, TimerCycles: timerCycles})
	k := New(m, Config{StackBytes: 4096})
	return m, k
}

// spinner yields after a fixed workload, forever.
func spinner(work uint64) machine.Entry {
	return func(c *machine.CPU, _ uint64) {
		for {
			c.Work(work)
			sys.Yield(c)
		}
	}
}

func TestRoundRobinOrder(t *testing.T) {
	_, k := newTestKernel(0)
	for _, name := range []string{"a", "b", "c"} {
		if err := k.Spawn(name, 1000, spinner(10), 0); err != nil {
			t.Fatalf("Spawn(%s) error = %v", name, err)
		}
	}

	var order []string
	k.SetObserver(func(a Activation) { order = append(order, a.Name) })

	for i := 0; i < 6; i++ {
		if !k.Step() {
			t.Fatalf("Step() %d = false, want true", i)
		}
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("dispatched %d activations, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("activation %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestWithinBudgetStaysClean(t *testing.T) {
	_, k := newTestKernel(0)
	if err := k.Spawn("ok", 1000, spinner(500), 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	for i := 0; i < 8; i++ {
		k.Step()
		info := k.Snapshot()[0]
		if info.Status != StatusSuccess {
			t.Fatalf("activation %d status = %s, want success", i, info.Status)
		}
		if info.Violations != 0 {
			t.Fatalf("activation %d violations = %d, want 0", i, info.Violations)
		}
		if info.LastCost != 500 {
			t.Fatalf("activation %d last cost = %d, want 500", i, info.LastCost)
		}
	}
}

// TestThreeStrikesScenario walks the canonical pair: a 500-cycle task and
// a 1500-cycle task, both on a 1000-cycle budget.
func TestThreeStrikesScenario(t *testing.T) {
	_, k := newTestKernel(0)
	if err := k.Spawn("a", 1000, spinner(500), 0); err != nil {
		t.Fatalf("Spawn(a) error = %v", err)
	}
	if err := k.Spawn("b", 1000, spinner(1500), 0); err != nil {
		t.Fatalf("Spawn(b) error = %v", err)
	}

	var order []string
	k.SetObserver(func(a Activation) { order = append(order, a.Name) })

	// Rounds 1-3: a and b alternate.
	for round := 1; round <= 3; round++ {
		k.Step()
		k.Step()
		snap := k.Snapshot()
		if snap[0].Status != StatusSuccess || snap[0].Violations != 0 {
			t.Fatalf("round %d: a = %s/%d violations, want success/0", round, snap[0].Status, snap[0].Violations)
		}
		if snap[1].Status != StatusFailure {
			t.Fatalf("round %d: b status = %s, want failure", round, snap[1].Status)
		}
	}
	snap := k.Snapshot()
	if snap[1].Violations != 0 || snap[1].Cooldown != penaltyTurns {
		t.Fatalf("after round 3: b violations/cooldown = %d/%d, want 0/%d",
			snap[1].Violations, snap[1].Cooldown, penaltyTurns)
	}

	// Round 4: b sits in the penalty box, a runs normally.
	k.Step()
	k.Step()
	snap = k.Snapshot()
	if snap[1].Status != StatusPenalty {
		t.Fatalf("round 4: b status = %s, want penalty", snap[1].Status)
	}
	if snap[1].Cooldown != penaltyTurns-1 {
		t.Fatalf("round 4: b cooldown = %d, want %d", snap[1].Cooldown, penaltyTurns-1)
	}
	for _, name := range order[6:] {
		if name != "a" {
			t.Fatalf("round 4 dispatched %s, want only a", name)
		}
	}
}

func TestPenaltyLastsFiveSkips(t *testing.T) {
	_, k := newTestKernel(0)
	if err := k.Spawn("a", 1000, spinner(500), 0); err != nil {
		t.Fatalf("Spawn(a) error = %v", err)
	}
	if err := k.Spawn("b", 1000, spinner(1500), 0); err != nil {
		t.Fatalf("Spawn(b) error = %v", err)
	}

	// Drive b to three consecutive overruns.
	for i := 0; i < 6; i++ {
		k.Step()
	}
	if cd := k.Snapshot()[1].Cooldown; cd != penaltyTurns {
		t.Fatalf("cooldown = %d, want %d", cd, penaltyTurns)
	}

	var order []string
	k.SetObserver(func(a Activation) { order = append(order, a.Name) })

	skips := 0
	for len(order) == 0 || order[len(order)-1] != "b" {
		before := k.Snapshot()[1].Cooldown
		k.Step()
		after := k.Snapshot()[1].Cooldown
		if after < before {
			skips++
		}
		if len(order) > 20 {
			t.Fatalf("b never ran again, order = %v", order)
		}
	}
	if skips != penaltyTurns {
		t.Fatalf("b was skipped %d times before running, want %d", skips, penaltyTurns)
	}
}

func TestAllPenalizedIsNoop(t *testing.T) {
	_, k := newTestKernel(0)
	if err := k.Spawn("hog", 100, spinner(1500), 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if !k.Step() {
			t.Fatalf("Step() %d = false, want true", i)
		}
	}
	for i := 0; i < penaltyTurns; i++ {
		if k.Step() {
			t.Fatalf("Step() dispatched during penalty turn %d", i)
		}
		if st := k.Snapshot()[0].Status; st != StatusPenalty {
			t.Fatalf("penalty turn %d status = %s, want penalty", i, st)
		}
	}
	if !k.Step() {
		t.Fatal("Step() = false after penalty expired, want true")
	}
}

func TestExitRemovesExactlyOneTask(t *testing.T) {
	_, k := newTestKernel(0)
	oneShot := func(c *machine.CPU, _ uint64) {
		sys.Print(c, "bye\n")
		sys.Exit(c)
	}
	if err := k.Spawn("oneshot", 0, oneShot, 0); err != nil {
		t.Fatalf("Spawn(oneshot) error = %v", err)
	}
	if err := k.Spawn("keeper", 1000, spinner(10), 0); err != nil {
		t.Fatalf("Spawn(keeper) error = %v", err)
	}

	k.Step()
	if n := k.Len(); n != 1 {
		t.Fatalf("Len() after exit = %d, want 1", n)
	}

	out := k.Output().Drain()
	if len(out) != 1 || string(out[0]) != "bye\n" {
		t.Fatalf("output = %q, want [bye\\n]", out)
	}

	// The survivor keeps running over the shortened list.
	for i := 0; i < 4; i++ {
		if !k.Step() {
			t.Fatalf("Step() %d = false after removal, want true", i)
		}
	}
	snap := k.Snapshot()
	if len(snap) != 1 || snap[0].Name != "keeper" {
		t.Fatalf("snapshot = %+v, want only keeper", snap)
	}
}

func TestFallingOffEntryExits(t *testing.T) {
	_, k := newTestKernel(0)
	if err := k.Spawn("drop", 0, func(c *machine.CPU, _ uint64) {
		c.Work(10)
	}, 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	k.Step()
	if n := k.Len(); n != 0 {
		t.Fatalf("Len() = %d, want 0 after entry returned", n)
	}
	if k.Step() {
		t.Fatal("Step() = true on empty rotation, want false")
	}
}

func TestSpawnArgumentDelivery(t *testing.T) {
	_, k := newTestKernel(0)
	var got uint64
	if err := k.Spawn("arg", 0, func(c *machine.CPU, arg uint64) {
		got = arg
		sys.Exit(c)
	}, 0xfeed_beef); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	k.Step()
	if got != 0xfeed_beef {
		t.Fatalf("entry arg = %#x, want 0xfeedbeef", got)
	}
}

func TestSpawnFailureRegistersNothing(t *testing.T) {
	m := machine.New(machine.Config{MemBytes: 8 * 1024})
	k := New(m, Config{StackBytes: 4096})

	if err := k.Spawn("one", 0, spinner(1), 0); err != nil {
		t.Fatalf("Spawn(one) error = %v", err)
	}
	if err := k.Spawn("two", 0, spinner(1), 0); err != nil {
		t.Fatalf("Spawn(two) error = %v", err)
	}
	if err := k.Spawn("three", 0, spinner(1), 0); err == nil {
		t.Fatal("Spawn(three) error = nil, want allocation failure")
	}
	if n := k.Len(); n != 2 {
		t.Fatalf("Len() = %d, want 2", n)
	}

	found := false
	for _, b := range k.Output().Drain() {
		if string(b) == "cannot spawn three" {
			found = true
		}
	}
	if !found {
		t.Fatal("spawn failure was not reported on the output sink")
	}
}

func TestUnknownTrapIsIgnored(t *testing.T) {
	_, k := newTestKernel(0)
	var resumed bool
	if err := k.Spawn("odd", 0, func(c *machine.CPU, _ uint64) {
		c.SetReg(machine.RAX, 0x4242)
		c.Int(abi.VecSyscall)
		resumed = true
		sys.Exit(c)
	}, 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	k.Step()
	if !resumed {
		t.Fatal("task did not resume after unrecognized trap")
	}
}

func TestPrintRejectsForeignPointer(t *testing.T) {
	_, k := newTestKernel(0)
	if err := k.Spawn("bad", 0, func(c *machine.CPU, _ uint64) {
		c.SetReg(machine.RAX, uint64(abi.CallPrint))
		c.SetReg(machine.RDI, 0xdead_0000)
		c.SetReg(machine.RSI, 64)
		c.Int(abi.VecSyscall)
		sys.Exit(c)
	}, 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	k.Step()
	if out := k.Output().Drain(); len(out) != 0 {
		t.Fatalf("output = %q, want empty", out)
	}
}

func TestYieldMatchesPreemptionBookkeeping(t *testing.T) {
	// Cooperative: 1000 cycles of work, then a yield.
	_, ky := newTestKernel(0)
	if err := ky.Spawn("coop", 5000, spinner(1000), 0); err != nil {
		t.Fatalf("Spawn(coop) error = %v", err)
	}
	ky.Step()
	ky.Step()
	coop := ky.Snapshot()[0].LastCost

	// Preemptive: the same work with no yield, cut by a 1000-cycle timer.
	_, kp := newTestKernel(1000)
	if err := kp.Spawn("hog", 5000, func(c *machine.CPU, _ uint64) {
		for {
			c.Work(1000)
		}
	}, 0); err != nil {
		t.Fatalf("Spawn(hog) error = %v", err)
	}
	kp.Step()
	kp.Step()
	preempt := kp.Snapshot()[0].LastCost

	if coop != preempt {
		t.Fatalf("cooperative last cost %d != preempted last cost %d", coop, preempt)
	}
}

func TestContextFidelityAcrossPreemption(t *testing.T) {
	_, k := newTestKernel(100)

	want := map[machine.Reg]uint64{}
	for i, r := range machine.GPRs {
		want[r] = 0xA5A5_0000 + uint64(i)*0x1111
	}

	got := map[machine.Reg]uint64{}
	done := false
	if err := k.Spawn("fidelity", 1_000_000, func(c *machine.CPU, _ uint64) {
		for _, r := range machine.GPRs {
			c.SetReg(r, want[r])
		}
		// Long enough to be preempted several times.
		c.Work(500)
		for _, r := range machine.GPRs {
			got[r] = c.Reg(r)
		}
		done = true
		sys.Exit(c)
	}, 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	for i := 0; i < 50 && !done; i++ {
		k.Step()
	}
	if !done {
		t.Fatal("task never finished")
	}
	for _, r := range machine.GPRs {
		if got[r] != want[r] {
			t.Fatalf("register %d = %#x after resume, want %#x", r, got[r], want[r])
		}
	}
}

func TestContextFidelityAcrossYield(t *testing.T) {
	_, k := newTestKernel(0)

	want := map[machine.Reg]uint64{}
	for i, r := range machine.GPRs {
		want[r] = 0xC3C3_0000 + uint64(i)*0x2222
	}

	got := map[machine.Reg]uint64{}
	done := false
	if err := k.Spawn("fidelity", 0, func(c *machine.CPU, _ uint64) {
		for _, r := range machine.GPRs {
			c.SetReg(r, want[r])
		}
		sys.Yield(c)
		for _, r := range machine.GPRs {
			got[r] = c.Reg(r)
		}
		done = true
		sys.Exit(c)
	}, 0); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	k.Step()
	k.Step()
	if !done {
		t.Fatal("task never finished")
	}
	for _, r := range machine.GPRs {
		if r == machine.RAX {
			// The yield wrapper itself travels in RAX; the trap frame
			// preserves the wrapper's value, not the earlier one.
			if got[r] != uint64(abi.CallYield) {
				t.Fatalf("RAX = %#x after yield, want the yield request code", got[r])
			}
			continue
		}
		if got[r] != want[r] {
			t.Fatalf("register %d = %#x after yield, want %#x", r, got[r], want[r])
		}
	}
}

func TestTimerWithNoActiveTaskIsBenign(t *testing.T) {
	m, k := newTestKernel(0)
	m.Intc().Raise(machine.LineTimer)
	// Nothing spawned: the poll at the top of Step services the tick.
	if k.Step() {
		t.Fatal("Step() = true with no tasks, want false")
	}
	// The vector was acknowledged: a new tick is deliverable.
	m.Intc().Raise(machine.LineTimer)
	if k.Step() {
		t.Fatal("Step() = true with no tasks, want false")
	}
}

func TestAdjustDefaultBudgetClampsAtFloor(t *testing.T) {
	_, k := newTestKernel(0)
	if got := k.AdjustDefaultBudget(1_000_000); got != DefaultBudget+1_000_000 {
		t.Fatalf("raise = %d, want %d", got, DefaultBudget+1_000_000)
	}
	if got := k.AdjustDefaultBudget(-100_000_000); got != minBudgetFloor {
		t.Fatalf("lower = %d, want floor %d", got, minBudgetFloor)
	}
}

func TestSnapshotReflectsSpawnOrder(t *testing.T) {
	_, k := newTestKernel(0)
	for _, name := range []string{"x", "y"} {
		if err := k.Spawn(name, 1234, spinner(5), 0); err != nil {
			t.Fatalf("Spawn(%s) error = %v", name, err)
		}
	}
	snap := k.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snapshot) = %d, want 2", len(snap))
	}
	if snap[0].Index != 0 || snap[0].Name != "x" || snap[1].Index != 1 || snap[1].Name != "y" {
		t.Fatalf("snapshot = %+v, want x then y", snap)
	}
	if snap[0].Budget != 1234 || snap[0].Status != StatusWaiting {
		t.Fatalf("fresh task tuple = %+v, want budget 1234, waiting", snap[0])
	}
}
