package effect

import (
	"testing"

	"github.com/pkg/errors"
)

func TestNewFade_RejectsInvalidStep(t *testing.T) {
	for _, step := range []float64{0, -0.1, 1.5} {
		if _, err := NewFade(step); !errors.Is(err, ErrInvalidFadeStep) {
			t.Errorf("NewFade(%v) error = %v, want ErrInvalidFadeStep", step, err)
		}
	}
}

func TestFade_InitialState(t *testing.T) {
	f, err := NewFade(DefaultFadeStep)
	if err != nil {
		t.Fatalf("NewFade() error = %v", err)
	}

	if f.Alpha() != 1 {
		t.Errorf("Alpha() = %v, want 1", f.Alpha())
	}
	if f.Fading() {
		t.Error("new fade should not be fading")
	}
	if !f.CanDetect() {
		t.Error("new fade should allow detection")
	}
	if f.Active() {
		t.Error("new fade should not need compositing")
	}
	if got := f.State().Phase; got != PhaseReady {
		t.Errorf("Phase = %q, want %q", got, PhaseReady)
	}
}

func TestFade_CompletesInExactlyTwentyFiveSteps(t *testing.T) {
	f, _ := NewFade(0.04)

	if !f.Trigger() {
		t.Fatal("Trigger() = false on a ready fade")
	}

	prev := f.Alpha()
	for i := 1; i <= 24; i++ {
		if f.Step() {
			t.Fatalf("fade completed early at step %d", i)
		}
		a := f.Alpha()
		if a >= prev {
			t.Fatalf("alpha did not decrease at step %d: %v -> %v", i, prev, a)
		}
		if a < 0 || a > 1 {
			t.Fatalf("alpha out of range at step %d: %v", i, a)
		}
		prev = a
	}

	if !f.Step() {
		t.Fatal("fade did not complete at step 25")
	}
	if f.Alpha() != 0 {
		t.Errorf("Alpha() = %v after completion, want 0", f.Alpha())
	}
	if f.Fading() {
		t.Error("fade should stop after completion")
	}
	if got := f.State().Phase; got != PhaseGone {
		t.Errorf("Phase = %q, want %q", got, PhaseGone)
	}

	// Further steps are no-ops.
	for i := 0; i < 3; i++ {
		if f.Step() {
			t.Error("Step() reported completion on a finished fade")
		}
	}
	if f.Alpha() != 0 {
		t.Errorf("Alpha() = %v, want to stay at 0", f.Alpha())
	}
}

func TestFade_LargeStepClampsToZero(t *testing.T) {
	f, _ := NewFade(0.3)
	f.Trigger()

	steps := 0
	for !f.Step() {
		steps++
		if steps > 10 {
			t.Fatal("fade never completed")
		}
	}
	if steps+1 != 4 {
		t.Errorf("completed in %d steps, want 4", steps+1)
	}
	if f.Alpha() != 0 {
		t.Errorf("Alpha() = %v, want 0", f.Alpha())
	}
}

func TestFade_TriggerOnlyWhenPresent(t *testing.T) {
	f, _ := NewFade(0.04)
	f.Trigger()

	if f.Trigger() {
		t.Error("Trigger() should be ignored while fading")
	}
	if f.CanDetect() {
		t.Error("CanDetect() should be false while fading")
	}

	for !f.Step() {
	}

	if f.Trigger() {
		t.Error("Trigger() should be ignored once gone")
	}
	if !f.Active() {
		t.Error("a finished fade still needs compositing")
	}
}

func TestFade_ResetIsIdempotent(t *testing.T) {
	f, _ := NewFade(0.04)
	f.Trigger()
	for i := 0; i < 10; i++ {
		f.Step()
	}

	f.Reset()
	first := f.State()
	f.Reset()
	second := f.State()

	if first != second {
		t.Errorf("second Reset() changed state: %+v -> %+v", first, second)
	}
	if second.Alpha != 1 || second.Fading || second.Phase != PhaseReady {
		t.Errorf("state after Reset() = %+v, want ready at alpha 1", second)
	}
	if !f.Trigger() {
		t.Error("Trigger() should work again after Reset()")
	}
}

func TestFade_StepWithoutTriggerDoesNothing(t *testing.T) {
	f, _ := NewFade(0.5)

	if f.Step() {
		t.Error("Step() on an idle fade reported completion")
	}
	if f.Alpha() != 1 {
		t.Errorf("Alpha() = %v, want 1", f.Alpha())
	}
}
