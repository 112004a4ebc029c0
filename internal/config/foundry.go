package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/orange-finance/odeploy/internal/domain/config"
)

// loadEnvFiles loads .env and .env.local from the project root. Variables
// already set in the process environment win.
func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("failed to load env file", "path", envFile, "error", err)
		}
	}
}

// loadFoundryConfig loads and parses foundry.toml, expanding ${VAR}
// references in RPC endpoints and etherscan entries.
func loadFoundryConfig(projectRoot string) (*config.FoundryConfig, error) {
	foundryPath := filepath.Join(projectRoot, "foundry.toml")

	var cfg config.FoundryConfig
	if _, err := toml.DecodeFile(foundryPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse foundry.toml: %w", err)
	}

	for name, url := range cfg.RpcEndpoints {
		cfg.RpcEndpoints[name], _ = expandEnv(url)
	}
	for name, es := range cfg.Etherscan {
		es.Key, _ = expandEnv(es.Key)
		es.URL, _ = expandEnv(es.URL)
		cfg.Etherscan[name] = es
	}

	return &cfg, nil
}
