package upgrades

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/orange-finance/odeploy/pkg/solc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vaultAST = `{
  "absolutePath": "src/Vault.sol",
  "id": 1,
  "nodeType": "SourceUnit",
  "nodes": [
    {
      "id": 10,
      "nodeType": "ContractDefinition",
      "name": "Base",
      "contractKind": "contract",
      "linearizedBaseContracts": [10],
      "nodes": [
        {
          "id": 11,
          "nodeType": "FunctionDefinition",
          "kind": "constructor",
          "name": "",
          "documentation": {"id": 12, "nodeType": "StructuredDocumentation", "text": "@custom:oz-upgrades-unsafe-allow constructor"},
          "body": {"id": 13, "nodeType": "Block", "statements": []}
        }
      ]
    },
    {
      "id": 20,
      "nodeType": "ContractDefinition",
      "name": "Vault",
      "contractKind": "contract",
      "linearizedBaseContracts": [20, 10],
      "nodes": [
        {
          "id": 21,
          "nodeType": "VariableDeclaration",
          "name": "depositCap",
          "stateVariable": true,
          "mutability": "mutable",
          "constant": false,
          "value": null
        },
        {
          "id": 22,
          "nodeType": "VariableDeclaration",
          "name": "MAX_FEE",
          "stateVariable": true,
          "mutability": "constant",
          "constant": true,
          "value": {"id": 23, "nodeType": "Literal", "value": "10000"}
        },
        {
          "id": 24,
          "nodeType": "FunctionDefinition",
          "kind": "function",
          "name": "multicall",
          "body": {
            "id": 25,
            "nodeType": "Block",
            "statements": [
              {
                "id": 26,
                "nodeType": "ExpressionStatement",
                "expression": {
                  "id": 27,
                  "nodeType": "FunctionCall",
                  "expression": {"id": 28, "nodeType": "MemberAccess", "memberName": "delegatecall"}
                }
              }
            ]
          }
        }
      ]
    },
    {
      "id": 30,
      "nodeType": "ContractDefinition",
      "name": "Legacy",
      "contractKind": "contract",
      "linearizedBaseContracts": [30],
      "nodes": [
        {"id": 31, "nodeType": "VariableDeclaration", "name": "pool", "stateVariable": true, "mutability": "immutable"},
        {"id": 32, "nodeType": "VariableDeclaration", "name": "fee", "stateVariable": true, "mutability": "mutable", "value": {"id": 33, "nodeType": "Literal"}},
        {"id": 34, "nodeType": "FunctionDefinition", "kind": "constructor", "name": "", "body": {"id": 35, "nodeType": "Block", "statements": []}},
        {
          "id": 36,
          "nodeType": "FunctionDefinition",
          "kind": "function",
          "name": "kill",
          "body": {"id": 37, "nodeType": "Block", "statements": [
            {"id": 38, "nodeType": "InlineAssembly", "AST": {"nodeType": "YulBlock", "statements": [
              {"nodeType": "YulExpressionStatement", "expression": {"nodeType": "YulFunctionCall", "functionName": {"nodeType": "YulIdentifier", "name": "selfdestruct"}}}
            ]}}
          ]}
        }
      ]
    }
  ]
}`

func loadIndex(t *testing.T) ContractIndex {
	t.Helper()
	var ast solc.Ast
	require.NoError(t, json.Unmarshal([]byte(vaultAST), &ast))
	idx := ContractIndex{}
	idx.Add(&ast)
	return idx
}

func findingOps(t *testing.T, err error) []UnsafeOp {
	t.Helper()
	var unsafeErr *UnsafeError
	require.True(t, errors.As(err, &unsafeErr), "expected UnsafeError, got %v", err)
	ops := make([]UnsafeOp, 0, len(unsafeErr.Findings))
	for _, f := range unsafeErr.Findings {
		ops = append(ops, f.Op)
	}
	return ops
}

func TestCheckUnsafe(t *testing.T) {
	idx := loadIndex(t)

	t.Run("delegatecall is reported", func(t *testing.T) {
		err := CheckUnsafe(idx, 20, nil)
		require.Error(t, err)
		assert.Equal(t, []UnsafeOp{OpDelegatecall}, findingOps(t, err))
		assert.Contains(t, err.Error(), "multicall")
	})

	t.Run("delegatecall is allowed explicitly", func(t *testing.T) {
		assert.NoError(t, CheckUnsafe(idx, 20, []UnsafeOp{OpDelegatecall}))
	})

	t.Run("every legacy pattern is reported", func(t *testing.T) {
		err := CheckUnsafe(idx, 30, nil)
		require.Error(t, err)
		assert.ElementsMatch(t, []UnsafeOp{
			OpStateVariableImmutable,
			OpStateVariableAssignment,
			OpConstructor,
			OpSelfdestruct,
		}, findingOps(t, err))
	})

	t.Run("unknown contract", func(t *testing.T) {
		assert.Error(t, CheckUnsafe(idx, 999, nil))
	})
}

func TestValidateImplementation(t *testing.T) {
	idx := loadIndex(t)
	uupsABI, err := abi.JSON(strings.NewReader(`[
		{"type":"function","name":"upgradeToAndCall","inputs":[{"name":"impl","type":"address"},{"name":"data","type":"bytes"}],"outputs":[],"stateMutability":"payable"},
		{"type":"function","name":"proxiableUUID","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"}
	]`))
	require.NoError(t, err)

	t.Run("uups implementation with allowed delegatecall passes", func(t *testing.T) {
		impl := Implementation{Name: "Vault", ABI: uupsABI, ContractID: 20, Index: idx}
		assert.NoError(t, ValidateImplementation(impl, Options{Kind: KindUUPS, UnsafeAllow: []UnsafeOp{OpDelegatecall}}))
	})

	t.Run("missing uups entrypoints are reported with unsafe ops", func(t *testing.T) {
		impl := Implementation{Name: "Vault", ContractID: 20, Index: idx}
		err := ValidateImplementation(impl, Options{Kind: KindUUPS})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upgradeToAndCall")
		assert.Contains(t, err.Error(), "delegatecall")
	})

	t.Run("upgrade with incompatible layout fails", func(t *testing.T) {
		impl := Implementation{
			Name:       "Vault",
			ABI:        uupsABI,
			ContractID: 20,
			Index:      idx,
			Layout:     layout(entry("asset", 0, 0, "t_uint256")),
		}
		err := ValidateUpgrade(layout(entry("asset", 0, 0, "t_address")), impl, Options{Kind: KindUUPS, UnsafeAllow: []UnsafeOp{OpDelegatecall}})
		require.Error(t, err)
		var layoutErr *LayoutError
		assert.True(t, errors.As(err, &layoutErr))
	})
}
