package checkout

import "testing"

func TestStepTrackerForwardOrdering(t *testing.T) {
	t.Parallel()

	tracker := NewStepTracker()

	if got := tracker.Current(); got != StepAddress {
		t.Fatalf("expected new tracker at address step, got %s", got)
	}
	if tracker.CanEnter(StepShipping) {
		t.Fatalf("expected shipping step blocked before address is satisfied")
	}
	if tracker.CanEnter(StepPayment) {
		t.Fatalf("expected payment step blocked from address step")
	}

	tracker.MarkSatisfied(StepAddress)
	if !tracker.CanEnter(StepShipping) {
		t.Fatalf("expected shipping step enterable after address satisfied")
	}
	if tracker.CanEnter(StepPayment) {
		t.Fatalf("expected payment step blocked two steps ahead")
	}

	tracker.MoveTo(StepShipping)
	if got := tracker.Current(); got != StepShipping {
		t.Fatalf("expected shipping step, got %s", got)
	}
}

func TestStepTrackerBackwardMoveClearsLaterSteps(t *testing.T) {
	t.Parallel()

	tracker := NewStepTracker()
	tracker.MarkSatisfied(StepAddress)
	tracker.MoveTo(StepShipping)
	tracker.MarkSatisfied(StepShipping)
	tracker.MoveTo(StepPayment)

	tracker.MoveTo(StepShipping)

	if tracker.Satisfied(StepShipping) {
		t.Fatalf("expected shipping satisfaction cleared after moving back")
	}
	if !tracker.Satisfied(StepAddress) {
		t.Fatalf("expected address satisfaction preserved")
	}
	if tracker.CanEnter(StepPayment) {
		t.Fatalf("expected payment step blocked until shipping is redone")
	}
}

func TestStepTrackerConfirmationIsTerminal(t *testing.T) {
	t.Parallel()

	tracker := NewStepTracker()
	tracker.MarkSatisfied(StepAddress)
	tracker.MoveTo(StepShipping)
	tracker.MarkSatisfied(StepShipping)
	tracker.MoveTo(StepPayment)
	tracker.MarkSatisfied(StepPayment)
	tracker.MoveTo(StepConfirmation)

	for _, step := range []Step{StepAddress, StepShipping, StepPayment} {
		if tracker.CanEnter(step) {
			t.Fatalf("expected %s step blocked after confirmation", step)
		}
	}
	if !tracker.CanEnter(StepConfirmation) {
		t.Fatalf("expected confirmation step re-enterable")
	}
}

func TestStepTrackerReset(t *testing.T) {
	t.Parallel()

	tracker := NewStepTracker()
	tracker.MarkSatisfied(StepAddress)
	tracker.MoveTo(StepShipping)
	tracker.MarkSatisfied(StepShipping)

	tracker.Reset()

	if got := tracker.Current(); got != StepAddress {
		t.Fatalf("expected address step after reset, got %s", got)
	}
	for step := StepAddress; step <= StepConfirmation; step++ {
		if tracker.Satisfied(step) {
			t.Fatalf("expected %s unsatisfied after reset", step)
		}
	}
}
