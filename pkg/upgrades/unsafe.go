package upgrades

import (
	"fmt"
	"slices"
	"strings"

	"github.com/orange-finance/odeploy/pkg/solc"
)

// UnsafeOp names an operation that breaks proxied execution.
type UnsafeOp string

const (
	OpDelegatecall            UnsafeOp = "delegatecall"
	OpSelfdestruct            UnsafeOp = "selfdestruct"
	OpConstructor             UnsafeOp = "constructor"
	OpStateVariableImmutable  UnsafeOp = "state-variable-immutable"
	OpStateVariableAssignment UnsafeOp = "state-variable-assignment"
)

const allowAnnotation = "@custom:oz-upgrades-unsafe-allow"

// Finding is one unsafe operation located in a contract.
type Finding struct {
	Op       UnsafeOp
	Contract string
	Detail   string
}

func (f Finding) String() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s in %s (%s)", f.Op, f.Contract, f.Detail)
	}
	return fmt.Sprintf("%s in %s", f.Op, f.Contract)
}

// UnsafeError lists every disallowed operation found.
type UnsafeError struct {
	Contract string
	Findings []Finding
}

func (e *UnsafeError) Error() string {
	lines := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		lines = append(lines, "  - "+f.String())
	}
	return fmt.Sprintf("contract %s is not upgrade safe:\n%s", e.Contract, strings.Join(lines, "\n"))
}

// ContractIndex resolves AST ids of contract definitions across source units.
type ContractIndex map[int]*solc.AstNode

// Add registers every contract definition of a source unit.
func (idx ContractIndex) Add(ast *solc.Ast) {
	for id, node := range ast.ContractDefinitions() {
		idx[id] = node
	}
}

// CheckUnsafe inspects the contract and its linearized bases for operations
// that are not safe behind a proxy. Operations in allow are skipped, as are
// operations annotated with @custom:oz-upgrades-unsafe-allow on the
// enclosing contract, function or variable.
func CheckUnsafe(idx ContractIndex, contractID int, allow []UnsafeOp) error {
	target, ok := idx[contractID]
	if !ok {
		return fmt.Errorf("contract definition %d not found in AST", contractID)
	}

	bases := target.LinearizedBaseContracts
	if len(bases) == 0 {
		bases = []int{contractID}
	}

	var findings []Finding
	for _, id := range bases {
		def, ok := idx[id]
		if !ok {
			return fmt.Errorf("base contract %d of %s not found in AST", id, target.Name)
		}
		if def.Kind == "interface" || def.Kind == "library" {
			continue
		}
		contractAllowed := annotations(def.Documentation)
		for _, member := range def.Children {
			findings = append(findings, scanMember(def.Name, member, contractAllowed)...)
		}
	}

	findings = slices.DeleteFunc(findings, func(f Finding) bool {
		return slices.Contains(allow, f.Op)
	})
	if len(findings) == 0 {
		return nil
	}
	return &UnsafeError{Contract: target.Name, Findings: findings}
}

func scanMember(contract string, member *solc.AstNode, contractAllowed []UnsafeOp) []Finding {
	allowed := append(slices.Clone(contractAllowed), annotations(member.Documentation)...)
	var out []Finding
	report := func(op UnsafeOp, detail string) {
		if !slices.Contains(allowed, op) {
			out = append(out, Finding{Op: op, Contract: contract, Detail: detail})
		}
	}

	switch member.NodeType {
	case "VariableDeclaration":
		if !member.StateVariable {
			return nil
		}
		if member.Mutability == "immutable" {
			report(OpStateVariableImmutable, member.Name)
		} else if member.HasValue && !member.Constant && member.Mutability != "constant" {
			report(OpStateVariableAssignment, member.Name)
		}
		return out
	case "FunctionDefinition":
		if member.Kind == "constructor" {
			report(OpConstructor, "")
		}
	case "ModifierDefinition":
	default:
		return nil
	}

	member.Walk(func(n *solc.AstNode) bool {
		switch {
		case n.NodeType == "MemberAccess" && n.MemberName == "delegatecall":
			report(OpDelegatecall, member.Name)
		case n.NodeType == "Identifier" && (n.Name == "selfdestruct" || n.Name == "suicide"):
			report(OpSelfdestruct, member.Name)
		case n.NodeType == "YulIdentifier" && n.Name == "delegatecall":
			report(OpDelegatecall, member.Name)
		case n.NodeType == "YulIdentifier" && n.Name == "selfdestruct":
			report(OpSelfdestruct, member.Name)
		}
		return true
	})
	return out
}

func annotations(doc string) []UnsafeOp {
	var ops []UnsafeOp
	for _, line := range strings.Split(doc, "\n") {
		idx := strings.Index(line, allowAnnotation)
		if idx < 0 {
			continue
		}
		rest := strings.TrimPrefix(line[idx+len(allowAnnotation):], "-reachable")
		for _, field := range strings.Fields(rest) {
			ops = append(ops, UnsafeOp(field))
		}
	}
	return ops
}
