package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDir         = "atlas"
	configFileName = "config.yaml"
)

// ConfigPathEnv names a config file for invocations that cannot pass --config,
// such as a compositor keybinding.
const ConfigPathEnv = EnvPrefix + "_CONFIG"

// ResolvePath picks the config file: explicit flag, then ATLAS_CONFIG, then
// $XDG_CONFIG_HOME/atlas/config.yaml, then ~/.config/atlas/config.yaml.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(ConfigPathEnv)} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return expandHome(candidate)
		}
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, configFileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", appDir, configFileName), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for " + path)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
