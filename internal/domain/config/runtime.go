package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string
	ParamsDir   string

	// Context settings
	Environment *Environment // nil if not specified
	Units       []string     // unit ids selected by ODEPLOY_UNIT

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool
	Timeout        time.Duration
	DryRun         bool
	Yes            bool

	// Resolved configurations
	FoundryConfig *FoundryConfig
	ProjectConfig *ProjectConfig
}

// Environment is a named deployment target
type Environment struct {
	Name        string `json:"name"`
	Network     string `json:"network,omitempty"` // key of foundry.toml [rpc_endpoints]
	RPCURL      string `json:"rpcUrl"`
	ChainID     uint64 `json:"chainId"`
	Production  bool   `json:"production"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}
