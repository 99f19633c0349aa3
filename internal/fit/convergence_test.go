package fit

import (
	"math"
	"testing"
)

func TestConvergenceTracker_BasicConvergence(t *testing.T) {
	config := ConvergenceConfig{
		Enabled:   true,
		Patience:  3,
		Threshold: 0.01, // 1% improvement required
	}
	tracker := NewConvergenceTracker(config)

	if tracker.Best() != math.Inf(-1) {
		t.Errorf("Expected initial best to be -Inf, got %v", tracker.Best())
	}

	if tracker.Update(0.5) {
		t.Error("Should not converge on first update")
	}

	// 20% improvement resets the stale counter
	if tracker.Update(0.6) {
		t.Error("Should not converge after improvement")
	}
	if tracker.StaleCount() != 0 {
		t.Errorf("Expected stale count 0 after improvement, got %v", tracker.StaleCount())
	}

	if tracker.Update(0.603) { // 0.5% < 1%
		t.Error("Should not converge yet (1/3)")
	}
	if tracker.Update(0.604) {
		t.Error("Should not converge yet (2/3)")
	}
	if !tracker.Update(0.605) {
		t.Error("Should converge after patience exceeded (3/3)")
	}
	if tracker.Best() != 0.605 {
		t.Errorf("Expected best 0.605, got %v", tracker.Best())
	}
}

func TestConvergenceTracker_FromZeroFitness(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.1})

	tracker.Update(0)
	if tracker.Update(0.1) {
		t.Error("Any gain over zero fitness counts as progress")
	}
	if !tracker.Update(0.1) {
		t.Error("Expected convergence after a stale update with patience 1")
	}
}

func TestConvergenceTracker_Disabled(t *testing.T) {
	tracker := NewConvergenceTracker(DisabledConvergenceConfig())
	for i := 0; i < 100; i++ {
		if tracker.Update(0.5) {
			t.Fatal("Disabled tracker should never converge")
		}
	}
	if tracker.StaleCount() != 0 {
		t.Errorf("Disabled tracker should not count stale updates, got %d", tracker.StaleCount())
	}
}
