package config

import "slices"

// Verification providers
const (
	VerifierTenderly  = "tenderly"
	VerifierEtherscan = "etherscan"
)

// DefaultSkipEnvironments are local or ephemeral targets never verified.
var DefaultSkipEnvironments = []string{"hardhat", "localhost", "anvil"}

// ProjectConfig is the content of odeploy.toml
type ProjectConfig struct {
	ParamsDir    string                       `toml:"params_dir,omitempty"`
	Environments map[string]EnvironmentConfig `toml:"environments"`
	Deployer     DeployerConfig               `toml:"deployer"`
	Verification VerificationConfig           `toml:"verification"`
}

// EnvironmentConfig is one [environments.<name>] table
type EnvironmentConfig struct {
	Network     string `toml:"network,omitempty"`
	RPCURL      string `toml:"rpc_url,omitempty"`
	ChainID     uint64 `toml:"chain_id,omitempty"`
	Production  bool   `toml:"production,omitempty"`
	ExplorerURL string `toml:"explorer_url,omitempty"`
}

// DeployerConfig holds the single signing account of a run
type DeployerConfig struct {
	PrivateKey string `toml:"private_key"` //nolint:gosec // holds env var reference, not a literal secret
}

// VerificationConfig is the [verification] table
type VerificationConfig struct {
	Provider         string         `toml:"provider,omitempty"`
	SkipEnvironments []string       `toml:"skip_environments,omitempty"`
	Tenderly         TenderlyConfig `toml:"tenderly,omitempty"`
}

// TenderlyConfig is the [verification.tenderly] table
type TenderlyConfig struct {
	Account   string `toml:"account,omitempty"`
	Project   string `toml:"project,omitempty"`
	AccessKey string `toml:"access_key,omitempty"` //nolint:gosec // holds env var reference, not a literal secret
	APIURL    string `toml:"api_url,omitempty"`
}

// ShouldVerify reports whether verification runs on env.
func (v VerificationConfig) ShouldVerify(env string) bool {
	skip := v.SkipEnvironments
	if skip == nil {
		skip = DefaultSkipEnvironments
	}
	return !slices.Contains(skip, env)
}
