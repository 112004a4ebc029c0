package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
)

// ProjectFile is the project configuration next to foundry.toml
const ProjectFile = "odeploy.toml"

// loadProjectConfig parses odeploy.toml. A missing file yields an empty
// config so read-only commands work in fresh projects.
func loadProjectConfig(projectRoot string) (*config.ProjectConfig, error) {
	path := filepath.Join(projectRoot, ProjectFile)

	cfg := &config.ProjectConfig{Environments: map[string]config.EnvironmentConfig{}}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFile, err)
	}
	if cfg.Environments == nil {
		cfg.Environments = map[string]config.EnvironmentConfig{}
	}

	cfg.ParamsDir, _ = expandEnv(cfg.ParamsDir)
	cfg.Deployer.PrivateKey, _ = expandEnv(cfg.Deployer.PrivateKey)
	cfg.Verification.Tenderly.Account, _ = expandEnv(cfg.Verification.Tenderly.Account)
	cfg.Verification.Tenderly.Project, _ = expandEnv(cfg.Verification.Tenderly.Project)
	cfg.Verification.Tenderly.AccessKey, _ = expandEnv(cfg.Verification.Tenderly.AccessKey)
	cfg.Verification.Tenderly.APIURL, _ = expandEnv(cfg.Verification.Tenderly.APIURL)
	for name, env := range cfg.Environments {
		env.RPCURL, _ = expandEnv(env.RPCURL)
		env.ExplorerURL, _ = expandEnv(env.ExplorerURL)
		cfg.Environments[name] = env
	}

	return cfg, nil
}

// resolveEnvironment builds the selected environment. The RPC URL comes from
// the environment table or, failing that, from foundry.toml [rpc_endpoints]
// under the environment's network name, and last from <NETWORK>_RPC_URL.
func resolveEnvironment(name string, project *config.ProjectConfig, foundry *config.FoundryConfig) (*config.Environment, error) {
	ec, ok := project.Environments[name]
	if !ok {
		return nil, &domain.UnknownEnvironmentError{
			Environment: name,
			Known:       slices.Sorted(maps.Keys(project.Environments)),
		}
	}

	env := &config.Environment{
		Name:        name,
		Network:     ec.Network,
		RPCURL:      ec.RPCURL,
		ChainID:     ec.ChainID,
		Production:  ec.Production,
		ExplorerURL: ec.ExplorerURL,
	}
	if env.Network == "" {
		env.Network = name
	}
	if env.RPCURL == "" && foundry != nil {
		env.RPCURL = foundry.RpcEndpoints[env.Network]
	}
	if env.RPCURL == "" {
		env.RPCURL = os.Getenv(GenerateEnvVarName(env.Network))
	}
	return env, nil
}

// parseUnits splits a comma or space separated unit list
func parseUnits(values []string) []string {
	var units []string
	for _, v := range values {
		for _, u := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			if !slices.Contains(units, u) {
				units = append(units, u)
			}
		}
	}
	return units
}
