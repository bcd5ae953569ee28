// Package config loads the byechat configuration from YAML, .env files and
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete byechat configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Output   OutputConfig   `yaml:"output"`
	Effect   EffectConfig   `yaml:"effect"`
	Detector DetectorConfig `yaml:"detector"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	Hooks    []HookConfig   `yaml:"hooks"`
}

// CameraConfig selects the physical camera.
type CameraConfig struct {
	DeviceIndex int `yaml:"device_index"`
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
}

// OutputConfig describes the virtual camera sink.
type OutputConfig struct {
	Device string `yaml:"device"` // v4l2loopback node, e.g. /dev/video20
	FPS    int    `yaml:"fps"`
}

// EffectConfig tunes the dissolve effect.
type EffectConfig struct {
	FadeStep          float64 `yaml:"fade_step"`
	BackgroundSamples int     `yaml:"background_samples"`
	CountdownTicks    int     `yaml:"countdown_ticks"`
}

// DetectorConfig locates the MediaPipe inference service.
type DetectorConfig struct {
	ScriptPath     string  `yaml:"script_path"`
	PythonPath     string  `yaml:"python_path"`
	MaxHands       int     `yaml:"max_hands"`
	MinConfidence  float64 `yaml:"min_confidence"`
	ModelSelection int     `yaml:"model_selection"`
}

// ServerConfig configures the local control and preview server.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	StaticDir  string `yaml:"static_dir"`
	PreviewFPS int    `yaml:"preview_fps"`
}

// StoreConfig locates the preferences database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// HookConfig binds a command to a status kind.
type HookConfig struct {
	Event     string   `yaml:"event"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	TimeoutMs int      `yaml:"timeout_ms"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			DeviceIndex: 0,
			Width:       640,
			Height:      480,
		},
		Output: OutputConfig{
			Device: "/dev/video20",
			FPS:    30,
		},
		Effect: EffectConfig{
			FadeStep:          0.04,
			BackgroundSamples: 5,
			CountdownTicks:    5,
		},
		Detector: DetectorConfig{
			MaxHands:       1,
			MinConfidence:  0.7,
			ModelSelection: 0,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			PreviewFPS: 30,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

func defaultStorePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "byechat.db"
	}
	return filepath.Join(homeDir, ".byechat", "byechat.db")
}

// Load reads the YAML file at path on top of the defaults, then applies
// .env and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Debug().Str("path", path).Msg("config file not found, using defaults")
		case err != nil:
			return nil, errors.Wrap(err, "read config file")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(err, "parse config")
			}
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BYECHAT_CAMERA_INDEX"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "BYECHAT_CAMERA_INDEX=%q", v)
		}
		cfg.Camera.DeviceIndex = idx
	}
	if v := os.Getenv("BYECHAT_OUTPUT_DEVICE"); v != "" {
		cfg.Output.Device = v
	}
	if v := os.Getenv("BYECHAT_FADE_STEP"); v != "" {
		step, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "BYECHAT_FADE_STEP=%q", v)
		}
		cfg.Effect.FadeStep = step
	}
	if v := os.Getenv("BYECHAT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BYECHAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BYECHAT_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	return nil
}

// Validate checks value ranges.
func Validate(cfg *Config) error {
	if cfg.Effect.FadeStep <= 0 || cfg.Effect.FadeStep > 1 {
		return errors.Wrapf(ErrInvalid, "fade_step must be in (0, 1], got %v", cfg.Effect.FadeStep)
	}
	if cfg.Effect.BackgroundSamples < 1 {
		return errors.Wrapf(ErrInvalid, "background_samples must be >= 1, got %d", cfg.Effect.BackgroundSamples)
	}
	if cfg.Effect.CountdownTicks < 0 {
		return errors.Wrapf(ErrInvalid, "countdown_ticks must be >= 0, got %d", cfg.Effect.CountdownTicks)
	}
	if cfg.Output.FPS <= 0 {
		return errors.Wrapf(ErrInvalid, "output fps must be > 0, got %d", cfg.Output.FPS)
	}
	if cfg.Output.Device == "" {
		return errors.Wrap(ErrInvalid, "output device is required")
	}
	if cfg.Camera.DeviceIndex < 0 {
		return errors.Wrapf(ErrInvalid, "camera device_index must be >= 0, got %d", cfg.Camera.DeviceIndex)
	}
	for i, h := range cfg.Hooks {
		if h.Event == "" || h.Command == "" {
			return errors.Wrapf(ErrInvalid, "hook %d needs both event and command", i)
		}
	}
	return nil
}
