package models

import (
	"fmt"
	"time"

	"github.com/orange-finance/odeploy/pkg/solc"
)

// DeploymentType represents the type of deployment
type DeploymentType string

const (
	SingletonDeployment      DeploymentType = "SINGLETON"
	ProxyDeployment          DeploymentType = "PROXY"
	ImplementationDeployment DeploymentType = "IMPLEMENTATION"
)

// VerificationStatus represents the verification status
type VerificationStatus string

const (
	VerificationStatusUnverified VerificationStatus = "UNVERIFIED"
	VerificationStatusVerified   VerificationStatus = "VERIFIED"
	VerificationStatusFailed     VerificationStatus = "FAILED"
	VerificationStatusSkipped    VerificationStatus = "SKIPPED"
)

// ConfigurationStatus tracks the post-deploy call sequence of a unit
type ConfigurationStatus string

const (
	ConfigurationNone    ConfigurationStatus = ""
	ConfigurationPending ConfigurationStatus = "PENDING"
	ConfigurationApplied ConfigurationStatus = "APPLIED"
	ConfigurationFailed  ConfigurationStatus = "FAILED"
)

// Deployment is the registry record of a deployed unit
type Deployment struct {
	// Core identification
	ID           string         `json:"id"`          // e.g., "WETH-USDC", "ChainlinkQuoter"
	Environment  string         `json:"environment"` // e.g., "arbitrum", "arbitrum_dev"
	ChainID      uint64         `json:"chainId"`
	Kind         string         `json:"kind"`         // unit kind, e.g. "automator-v1_1"
	ContractName string         `json:"contractName"` // artifact name
	Address      string         `json:"address"`
	Type         DeploymentType `json:"type"`
	Version      string         `json:"version,omitempty"`

	TransactionHash string `json:"transactionHash,omitempty"`
	ConstructorArgs string `json:"constructorArgs,omitempty"` // hex encoded

	// Proxy information (null for non-proxy deployments)
	ProxyInfo *ProxyInfo `json:"proxyInfo,omitempty"`

	// Contract artifact information
	Artifact ArtifactInfo `json:"artifact"`

	// Storage layout of the code the address currently runs, used to gate
	// the next upgrade.
	StorageLayout *solc.StorageLayout `json:"storageLayout,omitempty"`

	Configuration ConfigurationInfo `json:"configuration"`
	Verification  VerificationInfo  `json:"verification"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProxyInfo contains proxy-specific information
type ProxyInfo struct {
	Kind             string         `json:"kind"` // "uups" or "transparent"
	Implementation   string         `json:"implementation"`
	ImplementationID string         `json:"implementationId"`
	Admin            string         `json:"admin,omitempty"` // ProxyAdmin for transparent proxies
	UpgradeIndex     int            `json:"upgradeIndex"`
	History          []ProxyUpgrade `json:"history"`
}

// ProxyUpgrade represents a proxy upgrade event
type ProxyUpgrade struct {
	UpgradeIndex     int       `json:"upgradeIndex"`
	ImplementationID string    `json:"implementationId"`
	Implementation   string    `json:"implementation"`
	UpgradedAt       time.Time `json:"upgradedAt"`
	TxHash           string    `json:"txHash"`
}

// ArtifactInfo contains contract artifact information
type ArtifactInfo struct {
	Path            string `json:"path"`            // e.g., "src/Vault.sol:Vault"
	CompilerVersion string `json:"compilerVersion"` // e.g., "0.8.24"
	BytecodeHash    string `json:"bytecodeHash"`    // keccak256 of creation code
}

// ConfigurationInfo records how far the post-deploy sequence got
type ConfigurationInfo struct {
	Status  ConfigurationStatus `json:"status,omitempty"`
	Applied []string            `json:"applied,omitempty"`
	Total   int                 `json:"total,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// VerificationInfo contains verification details
type VerificationInfo struct {
	Status     VerificationStatus `json:"status"`
	Provider   string             `json:"provider,omitempty"`
	URL        string             `json:"url,omitempty"`
	Target     string             `json:"target,omitempty"` // address actually submitted
	VerifiedAt *time.Time         `json:"verifiedAt,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// IsProxy reports whether the unit lives behind a proxy
func (d *Deployment) IsProxy() bool {
	return d.Type == ProxyDeployment && d.ProxyInfo != nil
}

// CurrentImplementation returns the implementation address for proxies and
// the unit address otherwise.
func (d *Deployment) CurrentImplementation() string {
	if d.IsProxy() {
		return d.ProxyInfo.Implementation
	}
	return d.Address
}

// GetDisplayName returns a human-friendly name for the deployment
func (d *Deployment) GetDisplayName() string {
	if d.ContractName != "" && d.ContractName != d.ID {
		return fmt.Sprintf("%s (%s)", d.ID, d.ContractName)
	}
	return d.ID
}

// Clone returns a deep copy so callers can mutate records without touching
// repository state.
func (d *Deployment) Clone() *Deployment {
	if d == nil {
		return nil
	}
	c := *d
	if d.ProxyInfo != nil {
		p := *d.ProxyInfo
		p.History = append([]ProxyUpgrade(nil), d.ProxyInfo.History...)
		c.ProxyInfo = &p
	}
	c.Configuration.Applied = append([]string(nil), d.Configuration.Applied...)
	if d.Verification.VerifiedAt != nil {
		at := *d.Verification.VerifiedAt
		c.Verification.VerifiedAt = &at
	}
	return &c
}
