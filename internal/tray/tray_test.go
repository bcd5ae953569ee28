package tray

import (
	"testing"

	"github.com/ayusman/byechat/internal/app"
	"github.com/pkg/errors"
)

type fakeController struct {
	state    app.State
	startErr error
	calls    []string
}

func (f *fakeController) Start() error {
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return f.startErr
	}
	f.state.Running = true
	return nil
}

func (f *fakeController) Stop() {
	f.calls = append(f.calls, "stop")
	f.state = app.State{}
}

func (f *fakeController) TriggerBackgroundCapture() error {
	f.calls = append(f.calls, "scan")
	if !f.state.Running {
		return app.ErrNotRunning
	}
	return nil
}

func (f *fakeController) Reset() error {
	f.calls = append(f.calls, "reset")
	return nil
}

func (f *fakeController) State() app.State {
	return f.state
}

func (f *fakeController) Subscribe(buffer int) (<-chan app.Status, func()) {
	ch := make(chan app.Status)
	return ch, func() { close(ch) }
}

func TestViewFor(t *testing.T) {
	tests := []struct {
		name  string
		state app.State
		want  view
	}{
		{"stopped", app.State{}, view{toggleTitle: "Start Camera"}},
		{"running without background", app.State{Running: true}, view{toggleTitle: "Stop Camera", scanEnabled: true}},
		{"counting down", app.State{Running: true, CountingDown: true}, view{toggleTitle: "Stop Camera"}},
		{"capturing", app.State{Running: true, CapturingBackground: true}, view{toggleTitle: "Stop Camera"}},
		{"background ready", app.State{Running: true, HasBackground: true}, view{toggleTitle: "Stop Camera", scanEnabled: true, resetEnabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := viewFor(tt.state); got != tt.want {
				t.Errorf("viewFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTray_Toggle(t *testing.T) {
	ctrl := &fakeController{}
	tr := New(ctrl)

	tr.handleToggle()
	tr.handleToggle()

	if len(ctrl.calls) != 2 || ctrl.calls[0] != "start" || ctrl.calls[1] != "stop" {
		t.Errorf("calls = %v, want [start stop]", ctrl.calls)
	}
}

func TestTray_ToggleStartError(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("camera busy")}
	tr := New(ctrl)

	tr.handleToggle()

	if got := tr.Status(); got != "Error: camera busy" {
		t.Errorf("Status() = %q", got)
	}
}

func TestTray_StatusEvents(t *testing.T) {
	tr := New(&fakeController{})

	if tr.Status() != "Camera off" {
		t.Errorf("initial Status() = %q", tr.Status())
	}

	tr.handleStatus(app.Status{Kind: app.StatusCountdown, Tick: 4, Message: "Move out! 4..."})
	if tr.Status() != "Move out! 4..." {
		t.Errorf("Status() = %q", tr.Status())
	}

	tr.handleStatus(app.Status{Kind: app.StatusReset})
	if tr.Status() != "Move out! 4..." {
		t.Error("a status without message replaced the status line")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(&fakeController{})

	previewed := false
	tr.OnPreview(func() { previewed = true })
	tr.handlePreview()

	if !previewed {
		t.Error("preview callback not called")
	}
}

func TestTray_ScanAndResetForwarded(t *testing.T) {
	ctrl := &fakeController{state: app.State{Running: true}}
	tr := New(ctrl)

	tr.handleScan()
	tr.handleReset()

	if len(ctrl.calls) != 2 || ctrl.calls[0] != "scan" || ctrl.calls[1] != "reset" {
		t.Errorf("calls = %v, want [scan reset]", ctrl.calls)
	}
}
