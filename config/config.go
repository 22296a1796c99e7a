// Package config loads voxclip's settings from an optional YAML file, with
// VOXCLIP_* environment variables taking precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "voxclip"
	envPrefix = "VOXCLIP"
)

var ErrConfigExists = errors.New("config file already exists")

type Config struct {
	RecordingsDir string `mapstructure:"recordings_dir" yaml:"recordings_dir"`
	Device        string `mapstructure:"device" yaml:"device"`
	Cues          bool   `mapstructure:"cues" yaml:"cues"`
	LogPath       string `mapstructure:"log_path" yaml:"log_path"`
}

var keyComments = map[string]string{
	"recordings_dir": "Directory where finished recordings are written.",
	"device":         "Capture device name; empty uses the system default.\nRun `voxclip devices` to list names.",
	"cues":           "Play short tones when recording starts and stops.",
	"log_path":       "Directory for diagnostics_log.txt; empty uses the OS default.",
}

// DefaultPath is $XDG_CONFIG_HOME/voxclip/config.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.yaml"), nil
}

func Default() Config {
	return Config{
		RecordingsDir: defaultRecordingsDir(),
		Cues:          true,
	}
}

func defaultRecordingsDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appName, "recordings")
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("recordings_dir", def.RecordingsDir)
	v.SetDefault("device", def.Device)
	v.SetDefault("cues", def.Cues)
	v.SetDefault("log_path", def.LogPath)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.RecordingsDir = expandPath(cfg.RecordingsDir)
	cfg.LogPath = expandPath(cfg.LogPath)
	if cfg.RecordingsDir == "" {
		return Config{}, fmt.Errorf("config validation failed: recordings_dir is empty")
	}
	return cfg, nil
}

// WriteDefault writes a commented template to path. It refuses to replace an
// existing file.
func WriteDefault(path string) error {
	data, err := Template()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Template renders the default config as YAML with a comment above each key.
func Template() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(Default()); err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if c, ok := keyComments[key.Value]; ok {
			key.HeadComment = c
		}
	}
	return yaml.Marshal(&node)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
