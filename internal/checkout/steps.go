package checkout

import "fmt"

// Step is a stage of the checkout flow. Steps are strictly ordered and the
// flow never skips forward.
type Step int

const (
	StepAddress Step = iota
	StepShipping
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// StepTracker records how far a checkout has progressed. Entering a step
// requires the previous step's requirement to be satisfied, and once the
// confirmation step is reached the flow is terminal. The tracker does not
// lock; the orchestrator serializes access.
type StepTracker struct {
	current   Step
	satisfied [StepConfirmation + 1]bool
}

func NewStepTracker() *StepTracker {
	return &StepTracker{current: StepAddress}
}

func (t *StepTracker) Current() Step {
	return t.current
}

// Satisfied reports whether the given step's requirement has been met.
func (t *StepTracker) Satisfied(step Step) bool {
	if step < StepAddress || step > StepConfirmation {
		return false
	}
	return t.satisfied[step]
}

// MarkSatisfied records the given step's requirement as met.
func (t *StepTracker) MarkSatisfied(step Step) {
	if step < StepAddress || step > StepConfirmation {
		return
	}
	t.satisfied[step] = true
}

// CanEnter reports whether the flow may move to the given step. Moving to
// the current step or an earlier one is always allowed; moving forward is
// allowed only to the immediate next step, and only once the current step
// is satisfied. Nothing leaves the confirmation step.
func (t *StepTracker) CanEnter(to Step) bool {
	if to < StepAddress || to > StepConfirmation {
		return false
	}
	if t.current == StepConfirmation {
		return to == StepConfirmation
	}
	if to <= t.current {
		return true
	}
	return to == t.current+1 && t.satisfied[t.current]
}

// MoveTo sets the current step. Moving backward clears the satisfaction of
// the target step and every step after it, since earlier input is being
// redone. Callers check CanEnter first.
func (t *StepTracker) MoveTo(step Step) {
	if step < StepAddress || step > StepConfirmation {
		return
	}
	if step < t.current {
		t.Invalidate(step)
	}
	t.current = step
}

// Invalidate clears the satisfaction of the given step and every later one.
func (t *StepTracker) Invalidate(step Step) {
	if step < StepAddress {
		step = StepAddress
	}
	for s := step; s <= StepConfirmation; s++ {
		t.satisfied[s] = false
	}
}

// Reset returns the tracker to the start of the flow.
func (t *StepTracker) Reset() {
	t.current = StepAddress
	t.satisfied = [StepConfirmation + 1]bool{}
}
