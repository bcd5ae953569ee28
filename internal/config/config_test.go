package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "byechat.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Effect.FadeStep != 0.04 {
		t.Errorf("FadeStep = %v, want 0.04", cfg.Effect.FadeStep)
	}
	if cfg.Output.FPS != 30 {
		t.Errorf("Output.FPS = %d, want 30", cfg.Output.FPS)
	}
	if cfg.Output.Device != "/dev/video20" {
		t.Errorf("Output.Device = %q, want /dev/video20", cfg.Output.Device)
	}
	if cfg.Effect.BackgroundSamples != 5 || cfg.Effect.CountdownTicks != 5 {
		t.Errorf("background samples/countdown = %d/%d, want 5/5",
			cfg.Effect.BackgroundSamples, cfg.Effect.CountdownTicks)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
camera:
  device_index: 2
output:
  device: /dev/video42
  fps: 25
effect:
  fade_step: 0.1
hooks:
  - event: gesture_detected
    command: /usr/bin/true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.DeviceIndex != 2 {
		t.Errorf("DeviceIndex = %d, want 2", cfg.Camera.DeviceIndex)
	}
	if cfg.Output.Device != "/dev/video42" || cfg.Output.FPS != 25 {
		t.Errorf("Output = %+v, want /dev/video42 @ 25", cfg.Output)
	}
	if cfg.Effect.FadeStep != 0.1 {
		t.Errorf("FadeStep = %v, want 0.1", cfg.Effect.FadeStep)
	}
	// Untouched fields keep their defaults
	if cfg.Effect.BackgroundSamples != 5 {
		t.Errorf("BackgroundSamples = %d, want 5", cfg.Effect.BackgroundSamples)
	}
	if len(cfg.Hooks) != 1 || cfg.Hooks[0].Event != "gesture_detected" {
		t.Errorf("Hooks = %+v, want one gesture_detected hook", cfg.Hooks)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BYECHAT_CAMERA_INDEX", "3")
	t.Setenv("BYECHAT_OUTPUT_DEVICE", "/dev/video9")
	t.Setenv("BYECHAT_FADE_STEP", "0.5")
	t.Setenv("BYECHAT_ADDR", ":9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.DeviceIndex != 3 {
		t.Errorf("DeviceIndex = %d, want 3", cfg.Camera.DeviceIndex)
	}
	if cfg.Output.Device != "/dev/video9" {
		t.Errorf("Output.Device = %q, want /dev/video9", cfg.Output.Device)
	}
	if cfg.Effect.FadeStep != 0.5 {
		t.Errorf("FadeStep = %v, want 0.5", cfg.Effect.FadeStep)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Server.Addr = %q, want :9999", cfg.Server.Addr)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("BYECHAT_FADE_STEP", "fast")

	_, err := Load("")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "effect: [not a map")

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"fade step of one", func(c *Config) { c.Effect.FadeStep = 1 }, false},
		{"zero fade step", func(c *Config) { c.Effect.FadeStep = 0 }, true},
		{"negative fade step", func(c *Config) { c.Effect.FadeStep = -0.1 }, true},
		{"fade step above one", func(c *Config) { c.Effect.FadeStep = 1.5 }, true},
		{"zero samples", func(c *Config) { c.Effect.BackgroundSamples = 0 }, true},
		{"no countdown", func(c *Config) { c.Effect.CountdownTicks = 0 }, false},
		{"zero fps", func(c *Config) { c.Output.FPS = 0 }, true},
		{"empty device", func(c *Config) { c.Output.Device = "" }, true},
		{"negative camera", func(c *Config) { c.Camera.DeviceIndex = -1 }, true},
		{"hook without command", func(c *Config) { c.Hooks = []HookConfig{{Event: "reset"}} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestApplySettings(t *testing.T) {
	t.Run("overlays known keys", func(t *testing.T) {
		cfg := Default()
		err := ApplySettings(cfg, map[string]string{
			KeyCameraIndex:  "1",
			KeyOutputDevice: "/dev/video30",
			KeyFadeStep:     "0.2",
			"unknown.key":   "ignored",
		})
		if err != nil {
			t.Fatalf("ApplySettings() error = %v", err)
		}
		if cfg.Camera.DeviceIndex != 1 || cfg.Output.Device != "/dev/video30" || cfg.Effect.FadeStep != 0.2 {
			t.Errorf("settings not applied: %+v", cfg)
		}
	})

	t.Run("invalid value leaves config untouched", func(t *testing.T) {
		cfg := Default()
		err := ApplySettings(cfg, map[string]string{
			KeyOutputDevice: "/dev/video30",
			KeyFadeStep:     "2",
		})
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("ApplySettings() error = %v, want ErrInvalid", err)
		}
		if cfg.Output.Device != "/dev/video20" || cfg.Effect.FadeStep != 0.04 {
			t.Errorf("config mutated on error: %+v", cfg)
		}
	})

	t.Run("round trips through Settings", func(t *testing.T) {
		cfg := Default()
		cfg.Effect.FadeStep = 0.125

		other := Default()
		if err := ApplySettings(other, Settings(cfg)); err != nil {
			t.Fatalf("ApplySettings() error = %v", err)
		}
		if other.Effect.FadeStep != 0.125 {
			t.Errorf("FadeStep = %v, want 0.125", other.Effect.FadeStep)
		}
	})
}
