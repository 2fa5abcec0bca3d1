// Package setups loads process configuration from the environment, optionally
// seeded from a dotenv file for local development.
package setups

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// EnvFileEnv names the dotenv file to read before parsing.
	EnvFileEnv     = "ENV_FILE"
	defaultEnvFile = ".env"
)

// LoadConfig reads the dotenv file (if present) and parses env tags into cfg.
// Variables already set in the process environment win over the file.
func LoadConfig(cfg any) error {
	path := strings.TrimSpace(os.Getenv(EnvFileEnv))
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		// Only an explicitly requested file has to exist.
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// SplitList parses a comma separated variable, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
