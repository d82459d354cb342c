package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/danmuck/cortexctl/internal/client"
	"github.com/danmuck/cortexctl/internal/protocol/session"
	"github.com/joho/godotenv"
)

const (
	EnvClientID     = "CORTEXCTL_CLIENT_ID"
	EnvClientSecret = "CORTEXCTL_CLIENT_SECRET"
	EnvHeadsetID    = "CORTEXCTL_HEADSET_ID"
	EnvAdminToken   = "CORTEXCTL_ADMIN_TOKEN"
)

// LoadEnvFile loads a dotenv file into the process environment. Variables
// already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config env load failed (%s): %w", path, err)
	}
	return nil
}

// ApplyEnv overlays credentials, the headset id and the admin token from the
// environment.
func ApplyEnv(cfg *client.ServiceConfig) {
	if v, ok := lookup(EnvClientID); ok {
		cfg.Session.Credentials.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok {
		cfg.Session.Credentials.ClientSecret = v
	}
	if v, ok := lookup(EnvHeadsetID); ok {
		cfg.Session.Mode = session.NewDeviceMode(v)
	}
	if v, ok := lookup(EnvAdminToken); ok {
		cfg.AdminToken = v
	}
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
