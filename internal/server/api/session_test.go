package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/byechat/internal/app"
	"github.com/pkg/errors"
)

type fakeController struct {
	state    app.State
	startErr error
	bgErr    error
	resetErr error
	calls    []string
}

func (f *fakeController) Start() error {
	f.calls = append(f.calls, "start")
	if f.startErr == nil {
		f.state.Running = true
	}
	return f.startErr
}

func (f *fakeController) Stop() {
	f.calls = append(f.calls, "stop")
	f.state.Running = false
}

func (f *fakeController) TriggerBackgroundCapture() error {
	f.calls = append(f.calls, "background")
	return f.bgErr
}

func (f *fakeController) Reset() error {
	f.calls = append(f.calls, "reset")
	return f.resetErr
}

func (f *fakeController) State() app.State {
	return f.state
}

func TestSessionHandler_GetState(t *testing.T) {
	ctrl := &fakeController{state: app.State{Session: "abc", Running: true, Frames: 42}}
	handler := NewSessionHandler(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var got app.State
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Session != "abc" || !got.Running || got.Frames != 42 {
		t.Errorf("unexpected state %+v", got)
	}
}

func TestSessionHandler_Actions(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		setup    func(*fakeController)
		wantCode int
	}{
		{"start", "start", nil, http.StatusOK},
		{"stop", "stop", nil, http.StatusOK},
		{"background", "background", nil, http.StatusOK},
		{"reset", "reset", nil, http.StatusOK},
		{"background while idle", "background", func(f *fakeController) { f.bgErr = app.ErrNotRunning }, http.StatusConflict},
		{"background twice", "background", func(f *fakeController) { f.bgErr = errors.Wrap(app.ErrCaptureInProgress, "counting down") }, http.StatusConflict},
		{"reset without background", "reset", func(f *fakeController) { f.resetErr = app.ErrNoBackground }, http.StatusConflict},
		{"start failure", "start", func(f *fakeController) { f.startErr = errors.New("boom") }, http.StatusInternalServerError},
		{"unknown action", "explode", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{}
			if tt.setup != nil {
				tt.setup(ctrl)
			}
			handler := NewSessionHandler(ctrl)

			req := httptest.NewRequest(http.MethodPost, "/api/session/"+tt.action, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d (%s)", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(&fakeController{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/session"},
		{http.MethodDelete, "/api/session"},
		{http.MethodGet, "/api/session/start"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
