// Package solc holds the subset of Foundry/solc compiler output needed to
// deploy contracts and reason about their upgrade safety.
package solc

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var linkPlaceholder = regexp.MustCompile(`__\$[0-9a-fA-F]{34}\$__`)

// ForgeArtifact is a single out/<File>.sol/<Contract>.json file.
type ForgeArtifact struct {
	Abi              abi.ABI                `json:"abi"`
	Bytecode         CompilerOutputBytecode `json:"bytecode"`
	DeployedBytecode CompilerOutputBytecode `json:"deployedBytecode"`
	StorageLayout    *StorageLayout         `json:"storageLayout,omitempty"`
	Ast              *Ast                   `json:"ast,omitempty"`
	Metadata         Metadata               `json:"metadata"`
	RawMetadata      string                 `json:"rawMetadata"`
	ID               int                    `json:"id"`
}

// CompilerOutputBytecode keeps Object as a string because it is not
// guaranteed to be hex when library placeholders are present.
type CompilerOutputBytecode struct {
	Object         string         `json:"object"`
	SourceMap      string         `json:"sourceMap,omitempty"`
	LinkReferences LinkReferences `json:"linkReferences,omitempty"`
}

type LinkReferences map[string]map[string][]LinkReferenceOffset

type LinkReferenceOffset struct {
	Length uint `json:"length"`
	Start  uint `json:"start"`
}

// Bytes decodes the bytecode object, failing on unlinked libraries.
func (b CompilerOutputBytecode) Bytes() ([]byte, error) {
	if linkPlaceholder.MatchString(b.Object) {
		return nil, fmt.Errorf("bytecode contains unlinked library references")
	}
	obj := b.Object
	if !strings.HasPrefix(obj, "0x") {
		obj = "0x" + obj
	}
	if obj == "0x" {
		return nil, nil
	}
	return hexutil.Decode(obj)
}

// Hash returns the keccak256 of the decoded bytecode, or the zero hash
// when the object cannot be decoded.
func (b CompilerOutputBytecode) Hash() string {
	code, err := b.Bytes()
	if err != nil || len(code) == 0 {
		return ""
	}
	return crypto.Keccak256Hash(code).Hex()
}

// Metadata is the parsed solc metadata forge stores next to the artifact.
type Metadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string `json:"language"`
	Settings struct {
		CompilationTarget map[string]string `json:"compilationTarget"`
		EvmVersion        string            `json:"evmVersion"`
		Optimizer         struct {
			Enabled bool `json:"enabled"`
			Runs    uint `json:"runs"`
		} `json:"optimizer"`
		Remappings []string          `json:"remappings"`
		Libraries  map[string]string `json:"libraries"`
	} `json:"settings"`
	Sources map[string]MetadataSource `json:"sources"`
}

type MetadataSource struct {
	Keccak256 string   `json:"keccak256"`
	License   string   `json:"license,omitempty"`
	URLs      []string `json:"urls,omitempty"`
}

// SourcePath returns the file that defines the compilation target.
func (m Metadata) SourcePath() string {
	for path := range m.Settings.CompilationTarget {
		return path
	}
	return ""
}

// StorageLayout represents the solc compilers output storage layout for
// a contract.
type StorageLayout struct {
	Storage []StorageLayoutEntry         `json:"storage"`
	Types   map[string]StorageLayoutType `json:"types"`
}

// GetStorageLayoutEntry returns the StorageLayoutEntry where the label matches
// the provided name.
func (s *StorageLayout) GetStorageLayoutEntry(name string) (StorageLayoutEntry, error) {
	for _, entry := range s.Storage {
		if entry.Label == name {
			return entry, nil
		}
	}
	return StorageLayoutEntry{}, fmt.Errorf("%s not found", name)
}

type StorageLayoutEntry struct {
	AstId    uint   `json:"astId"`
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Offset   uint   `json:"offset"`
	Slot     uint   `json:"slot,string"`
	Type     string `json:"type"`
}

type StorageLayoutType struct {
	Encoding      string               `json:"encoding"`
	Label         string               `json:"label"`
	NumberOfBytes uint                 `json:"numberOfBytes,string"`
	Key           string               `json:"key,omitempty"`
	Value         string               `json:"value,omitempty"`
	Base          string               `json:"base,omitempty"`
	Members       []StorageLayoutEntry `json:"members,omitempty"`
}

// ParseForgeArtifact decodes the JSON of a forge artifact file.
func ParseForgeArtifact(data []byte) (*ForgeArtifact, error) {
	var artifact ForgeArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}
