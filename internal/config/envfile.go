package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// LoadEnvFile loads KEY=VALUE pairs from PORKDDNS_ENV_FILE, or from .env when
// that is unset, into the process environment. Variables already set are not
// overridden. A missing .env is ignored; a missing explicitly named file is
// an error. It returns the path that was loaded, or "".
func LoadEnvFile() (string, error) {
	path := getEnv(EnvEnvFile)
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("loading env file %s: %w", path, err)
	}

	return path, nil
}
