package models

import (
	"fmt"
	"strings"
)

// UnitState is the executor's view of a unit for the current run
type UnitState string

const (
	StateAbsent           UnitState = "absent"
	StateDeployedFresh    UnitState = "deployed-fresh"
	StateDeployedExisting UnitState = "deployed-existing"
	StateUpgraded         UnitState = "upgraded"
)

// Changed reports whether the run created or re-pointed the unit, which is
// the only case in which post-deploy configuration runs.
func (s UnitState) Changed() bool {
	return s == StateDeployedFresh || s == StateUpgraded
}

// ProxyKind is the proxy pattern used for an upgradeable unit
type ProxyKind string

const (
	ProxyKindUUPS        ProxyKind = "uups"
	ProxyKindTransparent ProxyKind = "transparent"
)

// Call is a contract function call with loosely typed arguments that are
// coerced against the target ABI when encoded.
type Call struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
	// Target overrides the unit address; empty means the unit itself.
	Target string `json:"target,omitempty"`
}

func (c Call) String() string {
	parts := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		parts = append(parts, formatArg(a))
	}
	return fmt.Sprintf("%s(%s)", c.Method, strings.Join(parts, ", "))
}

func formatArg(a any) string {
	switch v := a.(type) {
	case map[string]any:
		return "{...}"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// UpgradeStep describes bringing a proxied unit to implementation version
// UpgradeIndex. Index 0 creates the proxy; higher indexes require the
// previous step to be recorded.
type UpgradeStep struct {
	Kind               ProxyKind `json:"kind"`
	UpgradeIndex       int       `json:"upgradeIndex"`
	ImplementationName string    `json:"implementationName"`
	Initializer        *Call     `json:"initializer,omitempty"`
	UnsafeAllow        []string  `json:"unsafeAllow,omitempty"`
}

// DependencyRef records how a symbolic reference was resolved
type DependencyRef struct {
	Param   string `json:"param"`
	Unit    string `json:"unit,omitempty"`
	Address string `json:"address"`
	// Verbatim is set when the address came from the parameter record.
	Verbatim bool `json:"verbatim,omitempty"`
	// Pending is set in dry runs for units planned earlier in the same run.
	Pending bool `json:"pending,omitempty"`
}

// DeployPlan is everything the executor, configurator and verifier need
// to bring one unit to its target state.
type DeployPlan struct {
	Unit            string          `json:"unit"` // registry id
	Kind            string          `json:"kind"`
	Environment     string          `json:"environment"`
	Contract        string          `json:"contract"` // artifact name
	Version         string          `json:"version"`
	ConstructorArgs []any           `json:"constructorArgs,omitempty"`
	Proxy           *UpgradeStep    `json:"proxy,omitempty"`
	Configure       []Call          `json:"configure,omitempty"`
	Dependencies    []DependencyRef `json:"dependencies,omitempty"`
	Verify          bool            `json:"verify"`
}

// IsProxied reports whether the unit is deployed behind a proxy
func (p *DeployPlan) IsProxied() bool {
	return p.Proxy != nil
}

// ImplementationID is the registry id of the implementation contract
func (p *DeployPlan) ImplementationID() string {
	if p.Proxy == nil {
		return ""
	}
	if p.Proxy.ImplementationName != "" {
		return p.Proxy.ImplementationName
	}
	return fmt.Sprintf("%s_Implementation_%d", p.Unit, p.Proxy.UpgradeIndex)
}

// Receipt is the outcome of a mined transaction
type Receipt struct {
	TxHash          string
	ContractAddress string
	BlockNumber     uint64
	GasUsed         uint64
}

// ExecutionResult is what the executor reports for one unit
type ExecutionResult struct {
	State          UnitState
	Deployment     *Deployment
	Transactions   []string
	Implementation string
	// Reused is set when an already recorded implementation was reused.
	Reused   bool
	DryRun   bool
	Warnings []string
}

// UnitReport is the pipeline outcome for one unit
type UnitReport struct {
	Unit         string
	Kind         string
	Plan         *DeployPlan
	State        UnitState
	Address      string
	Configured   []string
	Verification VerificationInfo
	Warnings     []string
	DryRun       bool
}
