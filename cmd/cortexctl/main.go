package main

import (
	"fmt"
	"os"

	"github.com/danmuck/cortexctl/internal/client"
	"github.com/danmuck/cortexctl/internal/config"
	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cortexctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("cortexctl", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to config.toml (defaults apply when empty)")
	envFile := flags.String("env-file", ".env", "dotenv file with CORTEXCTL_* credentials")
	writeConfig := flags.String("write-config", "", "write the default config to this path and exit")
	force := flags.Bool("force", false, "overwrite an existing file with --write-config")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logs.ConfigureRuntime()

	if *writeConfig != "" {
		if err := config.WriteTemplate(*writeConfig, *force); err != nil {
			return err
		}
		logs.Infof("cortexctl wrote config template path=%s", *writeConfig)
		return nil
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		return err
	}
	config.ApplyEnv(&cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	return client.NewServiceWithConfig(cfg).Run()
}
