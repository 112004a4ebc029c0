package solc

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Ast is the compact solc AST of one source unit.
type Ast struct {
	AbsolutePath string     `json:"absolutePath"`
	ID           int        `json:"id"`
	NodeType     string     `json:"nodeType"`
	Nodes        []*AstNode `json:"nodes"`
}

// AstNode is a loosely typed AST node. Only the attributes needed for
// upgrade-safety analysis are decoded; every other object or array of
// objects carrying a nodeType is collected into Children so that the whole
// tree can be walked without modelling each node kind.
type AstNode struct {
	ID                      int
	NodeType                string
	Name                    string
	Kind                    string
	MemberName              string
	Mutability              string
	StateVariable           bool
	Constant                bool
	HasValue                bool
	Documentation           string
	LinearizedBaseContracts []int
	Children                []*AstNode
}

type nodeHeader struct {
	ID                      int    `json:"id"`
	NodeType                string `json:"nodeType"`
	Name                    string `json:"name"`
	Kind                    string `json:"kind"`
	MemberName              string `json:"memberName"`
	Mutability              string `json:"mutability"`
	StateVariable           bool   `json:"stateVariable"`
	Constant                bool   `json:"constant"`
	LinearizedBaseContracts []int  `json:"linearizedBaseContracts"`
}

func (n *AstNode) UnmarshalJSON(data []byte) error {
	var header nodeHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	n.ID = header.ID
	n.NodeType = header.NodeType
	n.Name = header.Name
	n.Kind = header.Kind
	n.MemberName = header.MemberName
	n.Mutability = header.Mutability
	n.StateVariable = header.StateVariable
	n.Constant = header.Constant
	n.LinearizedBaseContracts = header.LinearizedBaseContracts

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if doc, ok := raw["documentation"]; ok {
		n.Documentation = decodeDocumentation(doc)
	}
	if v, ok := raw["value"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		n.HasValue = true
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "documentation" {
			continue
		}
		n.Children = append(n.Children, decodeChildren(raw[key])...)
	}
	return nil
}

// decodeDocumentation accepts both the legacy string form and the
// StructuredDocumentation node.
func decodeDocumentation(data json.RawMessage) string {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return text
	}
	var structured struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &structured); err == nil {
		return structured.Text
	}
	return ""
}

func decodeChildren(data json.RawMessage) []*AstNode {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		if !bytes.Contains(data, []byte(`"nodeType"`)) {
			return nil
		}
		var child AstNode
		if err := json.Unmarshal(data, &child); err != nil || child.NodeType == "" {
			return nil
		}
		return []*AstNode{&child}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		var out []*AstNode
		for _, item := range items {
			out = append(out, decodeChildren(item)...)
		}
		return out
	}
	return nil
}

// Walk visits n and every descendant depth first. Returning false from fn
// skips the node's children.
func (n *AstNode) Walk(fn func(*AstNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// ContractDefinitions returns every ContractDefinition in the source unit
// keyed by AST id.
func (a *Ast) ContractDefinitions() map[int]*AstNode {
	out := make(map[int]*AstNode)
	if a == nil {
		return out
	}
	for _, node := range a.Nodes {
		if node.NodeType == "ContractDefinition" {
			out[node.ID] = node
		}
	}
	return out
}
