package escrow

import "testing"

func TestWindowNeverSubmitted(t *testing.T) {
	for _, timeout := range []int64{0, 1, 86400} {
		for _, now := range []int64{0, 1, 1 << 40} {
			w := Window(0, timeout, now)
			if w.CanDispute {
				t.Errorf("Window(0, %d, %d).CanDispute = true, want false", timeout, now)
			}
			if w.TimeRemaining != 0 {
				t.Errorf("Window(0, %d, %d).TimeRemaining = %d, want 0", timeout, now, w.TimeRemaining)
			}
			if w.CanDisputeAt != 0 {
				t.Errorf("Window(0, %d, %d).CanDisputeAt = %d, want 0", timeout, now, w.CanDisputeAt)
			}
		}
	}
}

func TestWindowBoundaries(t *testing.T) {
	const submitted = int64(1_700_000_000)
	const timeout = int64(86400)

	tests := []struct {
		name      string
		now       int64
		can       bool
		remaining int64
	}{
		{"at submission", submitted, false, timeout},
		{"one second before deadline", submitted + timeout - 1, false, 1},
		{"exactly at deadline", submitted + timeout, true, 0},
		{"after deadline", submitted + timeout + 5000, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window(submitted, timeout, tt.now)
			if w.CanDispute != tt.can {
				t.Errorf("CanDispute = %v, want %v", w.CanDispute, tt.can)
			}
			if w.TimeRemaining != tt.remaining {
				t.Errorf("TimeRemaining = %d, want %d", w.TimeRemaining, tt.remaining)
			}
			if w.CanDisputeAt != submitted+timeout {
				t.Errorf("CanDisputeAt = %d, want %d", w.CanDisputeAt, submitted+timeout)
			}
		})
	}
}

func TestWindowRemainingMonotonic(t *testing.T) {
	const submitted = int64(1_000_000)
	const timeout = int64(3600)

	prev := Window(submitted, timeout, submitted).TimeRemaining
	for now := submitted + 1; now <= submitted+timeout+100; now += 7 {
		cur := Window(submitted, timeout, now).TimeRemaining
		if cur > prev {
			t.Fatalf("TimeRemaining increased from %d to %d at now=%d", prev, cur, now)
		}
		if cur < 0 {
			t.Fatalf("TimeRemaining went negative at now=%d", now)
		}
		prev = cur
	}
	if prev != 0 {
		t.Fatalf("TimeRemaining should settle at 0, got %d", prev)
	}
}
