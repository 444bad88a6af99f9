package configs

import (
	"flag"
	"io"
	"os"

	"github.com/hilthontt/watchparty/internal/infrastructure/env"
)

var candidatePaths = []string{
	"./config.yaml",
	"./config.yml",
	"../../config.yaml", // keep for local dev
	"/etc/watchparty/config.yaml",
	"/app/config.yaml", // common in Docker
}

// DetermineConfigPath resolves the config file from --config, then
// WATCHPARTY_CONFIG, then the candidate list. An empty result means the
// service runs on defaults and environment overrides only.
func DetermineConfigPath(args []string) string {
	var configPath string

	fs := flag.NewFlagSet("watchparty", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configPath, "config", "", "path to config file")
	_ = fs.Parse(args)

	if configPath == "" {
		configPath = env.GetString(EnvPrefix+"CONFIG", "")
	}

	if configPath == "" {
		for _, p := range candidatePaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
