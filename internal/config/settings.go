package config

import (
	"strconv"

	"github.com/pkg/errors"
)

// Preference keys persisted in the settings store.
const (
	KeyCameraIndex  = "camera.device_index"
	KeyOutputDevice = "output.device"
	KeyFadeStep     = "effect.fade_step"
)

// SettingKeys lists every key accepted by ApplySettings.
var SettingKeys = []string{KeyCameraIndex, KeyOutputDevice, KeyFadeStep}

// ApplySettings overlays stored preferences on cfg and re-validates it.
// Unknown keys are ignored. cfg is left untouched when an error is returned.
func ApplySettings(cfg *Config, settings map[string]string) error {
	next := *cfg

	for key, value := range settings {
		switch key {
		case KeyCameraIndex:
			idx, err := strconv.Atoi(value)
			if err != nil {
				return errors.Wrapf(ErrInvalid, "%s=%q", key, value)
			}
			next.Camera.DeviceIndex = idx
		case KeyOutputDevice:
			next.Output.Device = value
		case KeyFadeStep:
			step, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return errors.Wrapf(ErrInvalid, "%s=%q", key, value)
			}
			next.Effect.FadeStep = step
		}
	}

	if err := Validate(&next); err != nil {
		return err
	}

	*cfg = next
	return nil
}

// Settings extracts the persisted preference values from cfg.
func Settings(cfg *Config) map[string]string {
	return map[string]string{
		KeyCameraIndex:  strconv.Itoa(cfg.Camera.DeviceIndex),
		KeyOutputDevice: cfg.Output.Device,
		KeyFadeStep:     strconv.FormatFloat(cfg.Effect.FadeStep, 'f', -1, 64),
	}
}
