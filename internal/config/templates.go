package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# cortexctl configuration.
# Credentials may be left empty and supplied through CORTEXCTL_CLIENT_ID and
# CORTEXCTL_CLIENT_SECRET (a .env file is read at startup).
# Leave headset.id empty to scan for headsets and use the first one found.

`

// Template renders the default configuration file.
func Template() (string, error) {
	data, err := toml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("config template render failed: %w", err)
	}
	return templateHeader + string(data), nil
}

// WriteTemplate writes the default file to path. An existing file is kept
// unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
