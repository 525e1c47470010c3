/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/substantialcattle5/backup/internal/constants"
)

// Load reads the configuration at path on top of Default, so keys missing
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("configuration not found at %s", path)
		}
		return cfg, fmt.Errorf("error reading configuration: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing configuration %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicit when it is set. Otherwise it loads
// constants.DefaultConfigFile from the working directory if present, and falls
// back to Default. It returns the file that was used, or "" for defaults.
func Resolve(explicit string) (Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}

	if _, err := os.Stat(constants.DefaultConfigFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return Default(), "", fmt.Errorf("error accessing configuration: %w", err)
	}

	cfg, err := Load(constants.DefaultConfigFile)
	return cfg, constants.DefaultConfigFile, err
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("error encoding configuration: %w", err)
	}

	if err := os.WriteFile(path, data, constants.StandardFilePerms); err != nil {
		return fmt.Errorf("error writing configuration: %w", err)
	}
	return nil
}
