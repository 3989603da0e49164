package kernel

import "testing"

func TestJudge(t *testing.T) {
	cases := []struct {
		name       string
		elapsed    uint64
		budget     uint64
		violations uint8

		wantStatus     Status
		wantViolations uint8
		wantCooldown   uint8
	}{
		{"under budget", 500, 1000, 0, StatusSuccess, 0, 0},
		{"exactly on budget", 1000, 1000, 0, StatusSuccess, 0, 0},
		{"one over", 1001, 1000, 0, StatusFailure, 1, 0},
		{"second strike", 1500, 1000, 1, StatusFailure, 2, 0},
		{"third strike benches", 1500, 1000, 2, StatusFailure, 0, penaltyTurns},
		{"good run forgives a strike", 900, 1000, 2, StatusSuccess, 1, 0},
		{"forgiveness clamps at zero", 900, 1000, 0, StatusSuccess, 0, 0},
		{"zero-cost run", 0, 1000, 1, StatusSuccess, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, violations, cooldown := judge(tc.elapsed, tc.budget, tc.violations)
			if status != tc.wantStatus {
				t.Errorf("status = %s, want %s", status, tc.wantStatus)
			}
			if violations != tc.wantViolations {
				t.Errorf("violations = %d, want %d", violations, tc.wantViolations)
			}
			if cooldown != tc.wantCooldown {
				t.Errorf("cooldown = %d, want %d", cooldown, tc.wantCooldown)
			}
		})
	}
}

func TestStrikesMustBeConsecutive(t *testing.T) {
	var violations uint8
	for i := 0; i < 10; i++ {
		// Alternate overrun and clean run: the counter never reaches three.
		var status Status
		var cooldown uint8
		if i%2 == 0 {
			status, violations, cooldown = judge(2000, 1000, violations)
			if status != StatusFailure {
				t.Fatalf("run %d status = %s, want failure", i, status)
			}
		} else {
			status, violations, cooldown = judge(100, 1000, violations)
			if status != StatusSuccess {
				t.Fatalf("run %d status = %s, want success", i, status)
			}
		}
		if cooldown != 0 {
			t.Fatalf("run %d triggered a cooldown of %d", i, cooldown)
		}
	}
}

func TestStatusStrings(t *testing.T) {
	cases := []struct {
		st   Status
		want string
		icon string
	}{
		{StatusWaiting, "waiting", "[ .... ]"},
		{StatusSuccess, "success", "[ PASS ]"},
		{StatusFailure, "failure", "[ FAIL ]"},
		{StatusPenalty, "penalty", "[ BENCH]"},
	}
	for _, tc := range cases {
		if got := tc.st.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", tc.st, got, tc.want)
		}
		if got := tc.st.Icon(); got != tc.icon {
			t.Errorf("Icon(%d) = %q, want %q", tc.st, got, tc.icon)
		}
	}
}
