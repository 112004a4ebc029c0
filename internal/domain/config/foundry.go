package config

// FoundryConfig represents the parts of foundry.toml odeploy reads
type FoundryConfig struct {
	Profile      map[string]ProfileConfig   `toml:"profile"`
	RpcEndpoints map[string]string          `toml:"rpc_endpoints"`
	Etherscan    map[string]EtherscanConfig `toml:"etherscan,omitempty"`
}

// EtherscanConfig represents Etherscan configuration for a network
// This matches Foundry's expected structure
type EtherscanConfig struct {
	Key string `toml:"key,omitempty"` // API key for verification
	URL string `toml:"url,omitempty"` // API URL (for custom explorers)
}

// ProfileConfig represents a profile's foundry configuration
type ProfileConfig struct {
	SrcPath     string   `toml:"src,omitempty"`
	OutPath     string   `toml:"out,omitempty"`
	LibPaths    []string `toml:"libs,omitempty"`
	SolcVersion string   `toml:"solc_version,omitempty"`
	Ast         bool     `toml:"ast,omitempty"`
	ExtraOutput []string `toml:"extra_output,omitempty"`
}

// OutDir returns the artifact directory of the default profile.
func (f *FoundryConfig) OutDir() string {
	if f != nil {
		if p, ok := f.Profile["default"]; ok && p.OutPath != "" {
			return p.OutPath
		}
	}
	return "out"
}
