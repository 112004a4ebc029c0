package models

import "fmt"

// ParameterKey addresses one parameter record
type ParameterKey struct {
	Kind        string
	Environment string
	Unit        string
}

func (k ParameterKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Environment, k.Unit)
}

// ParameterSet is one parameter file as read from disk and, once validated,
// its normalized values. Err holds the read or validation failure.
type ParameterSet struct {
	ParameterKey
	Path   string
	Raw    map[string]any
	Values map[string]any
	Err    error
}

// Valid reports whether the set passed validation
func (p *ParameterSet) Valid() bool {
	return p.Err == nil && p.Values != nil
}
