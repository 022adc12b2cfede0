package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig reads a json5 config file and merges `<name>.local.<ext>` on top
// of it when present. os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	ext := filepath.Ext(name)
	localName := strings.TrimSuffix(name, ext) + ".local" + ext

	contents, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(contents) > 0 {
		err = json5.Unmarshal(contents, &out)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	}

	localContents, err := os.ReadFile(localName)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localContents) > 0 {
		var override T
		err = json5.Unmarshal(localContents, &override)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", localName, err)
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localName)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it walks up from the working directory
// until it finds a directory containing the config.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return zero, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return zero, os.ErrNotExist
		}
		current = parent
	}
}

// ReadWithDefaults reads the config at name (a missing file is not an error)
// and fills every zero field from defaults.
func ReadWithDefaults[T any](name string, defaults T) (T, error) {
	config, err := ReadConfig[T](name)
	return withDefaults(config, err, defaults)
}

// ReadRecursivelyWithDefaults is ReadWithDefaults on top of ReadRecursively.
func ReadRecursivelyWithDefaults[T any](name string, defaults T) (T, error) {
	config, err := ReadRecursively[T](name)
	return withDefaults(config, err, defaults)
}

func withDefaults[T any](config T, err error, defaults T) (T, error) {
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, err
	}
	err = mergo.Merge(&config, defaults)
	if err != nil {
		return config, err
	}
	return config, nil
}
