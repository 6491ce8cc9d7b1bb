package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr   string `env:"ODATA_ADDR" envDefault:":8000"`
	Prefix string `env:"ODATA_PREFIX" envDefault:"/odata"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
