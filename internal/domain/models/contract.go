package models

import (
	"fmt"

	"github.com/orange-finance/odeploy/pkg/solc"
)

// Contract is a compiled contract discovered in the Foundry out directory
type Contract struct {
	Name         string              `json:"name"`
	Path         string              `json:"path"` // source path, e.g. "src/Vault.sol"
	ArtifactPath string              `json:"artifactPath,omitempty"`
	Artifact     *solc.ForgeArtifact `json:"-"`
}

// Key returns "path:Name", the fully qualified contract reference
func (c *Contract) Key() string {
	return fmt.Sprintf("%s:%s", c.Path, c.Name)
}

// ASTID returns the AST node id of the contract definition, or -1 when the
// artifact was built without an AST.
func (c *Contract) ASTID() int {
	if c.Artifact == nil || c.Artifact.Ast == nil {
		return -1
	}
	for id, node := range c.Artifact.Ast.ContractDefinitions() {
		if node.Name == c.Name {
			return id
		}
	}
	return -1
}

// Info summarises the artifact for the registry
func (c *Contract) Info() ArtifactInfo {
	info := ArtifactInfo{Path: c.Key()}
	if c.Artifact != nil {
		info.CompilerVersion = c.Artifact.Metadata.Compiler.Version
		info.BytecodeHash = c.Artifact.Bytecode.Hash()
	}
	return info
}
