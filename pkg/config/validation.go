package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jacobtread/rme3/internal/telemetry"
)

var validate = validator.New()

// Validate checks cfg against its struct tags and the cross-field rules of
// each section.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Blaze.Validate(); err != nil {
		return fmt.Errorf("invalid blaze configuration: %w", err)
	}

	if cfg.Telemetry.Profiling.Enabled {
		if _, err := telemetry.ParseProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
			return fmt.Errorf("invalid telemetry.profiling.profile_types: %w", err)
		}
	}

	if cfg.API.Enabled && cfg.API.Port == cfg.Blaze.Port {
		return fmt.Errorf("api.port %d conflicts with blaze.port", cfg.API.Port)
	}

	return nil
}
