package output

import (
	"testing"
	"time"
)

func TestPacer_Interval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{30, time.Second / 30},
		{10, 100 * time.Millisecond},
		{0, time.Second / DefaultFPS},
		{-5, time.Second / DefaultFPS},
	}

	for _, tt := range tests {
		if got := NewPacer(tt.fps).Interval(); got != tt.want {
			t.Errorf("NewPacer(%d).Interval() = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestPacer_SpacesFrames(t *testing.T) {
	p := NewPacer(50) // 20ms

	start := time.Now()
	for i := 0; i < 6; i++ {
		if !p.Wait(nil) {
			t.Fatal("Wait() returned false without a stop signal")
		}
	}
	elapsed := time.Since(start)

	// first call is immediate, five boundaries follow
	if elapsed < 90*time.Millisecond {
		t.Errorf("6 frames took %v, expected at least ~100ms", elapsed)
	}
}

func TestPacer_StopInterruptsWait(t *testing.T) {
	p := NewPacer(1) // 1s
	stop := make(chan struct{})

	p.Wait(stop)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(stop)
	}()

	start := time.Now()
	if p.Wait(stop) {
		t.Error("Wait() = true, want false after stop")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Wait() did not return promptly after stop")
	}
}

func TestPacer_LateFrameDoesNotBurst(t *testing.T) {
	p := NewPacer(100) // 10ms
	p.Wait(nil)

	time.Sleep(50 * time.Millisecond)

	// The late frame restarts the schedule, so the next one waits again.
	p.Wait(nil)
	start := time.Now()
	p.Wait(nil)
	if time.Since(start) < 5*time.Millisecond {
		t.Error("pacer tried to catch up after a late frame")
	}
}
