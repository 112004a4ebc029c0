package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")

	// ErrContractNotFound is returned when a compiled artifact can't be found
	ErrContractNotFound = errors.New("contract not found")

	// ErrVerificationFailed is returned when contract verification fails
	ErrVerificationFailed = errors.New("verification failed")

	// ErrUnsupportedQuoterType is returned for a quoter selector outside the known set
	ErrUnsupportedQuoterType = errors.New("unsupported quoter type")
)

// ErrorClass groups failures the way the pipeline reports them.
type ErrorClass string

const (
	ClassConfiguration ErrorClass = "configuration"
	ClassDependency    ErrorClass = "dependency"
	ClassUpgradeSafety ErrorClass = "upgrade-safety"
	ClassTransaction   ErrorClass = "transaction"
	ClassVerification  ErrorClass = "verification"
)

// Classify returns the class of err, or "" when it carries none.
func Classify(err error) ErrorClass {
	var classed interface{ Class() ErrorClass }
	if errors.As(err, &classed) {
		return classed.Class()
	}
	return ""
}

// UnknownEnvironmentError is returned when the selected environment is not configured
type UnknownEnvironmentError struct {
	Environment string
	Known       []string
}

func (e *UnknownEnvironmentError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown environment %q: no environments configured in odeploy.toml", e.Environment)
	}
	return fmt.Sprintf("unknown environment %q (configured: %s)", e.Environment, strings.Join(e.Known, ", "))
}

func (e *UnknownEnvironmentError) Class() ErrorClass { return ClassConfiguration }

// ParameterSetNotFoundError is returned when no parameter file exists for a unit
type ParameterSetNotFoundError struct {
	Kind        string
	Environment string
	Unit        string
	Suggestions []string
}

func (e *ParameterSetNotFoundError) Error() string {
	msg := fmt.Sprintf("parameter set not found for %s/%s/%s", e.Kind, e.Environment, e.Unit)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *ParameterSetNotFoundError) Class() ErrorClass { return ClassConfiguration }

func (e *ParameterSetNotFoundError) Is(target error) bool { return target == ErrNotFound }

// SchemaError is returned when a parameter record violates its schema.
// Violations lists every offending field.
type SchemaError struct {
	Kind        string
	Environment string
	Unit        string
	Violations  []error
}

func (e *SchemaError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "  - "+v.Error())
	}
	return fmt.Sprintf("schema violation in %s/%s/%s:\n%s", e.Kind, e.Environment, e.Unit, strings.Join(lines, "\n"))
}

func (e *SchemaError) Class() ErrorClass { return ClassConfiguration }

func (e *SchemaError) Unwrap() []error { return e.Violations }

// Fields returns the names of the violating fields in report order.
func (e *SchemaError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		var fe *FieldError
		if errors.As(v, &fe) {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

// FieldError is a single schema violation
type FieldError struct {
	Field       string
	Description string
	Reason      string
}

func (e *FieldError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("field %q (%s): %s", e.Field, e.Description, e.Reason)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// DependencyNotDeployedError is returned when a referenced unit is missing from the registry
type DependencyNotDeployedError struct {
	Unit        string
	Environment string
	RequiredBy  string
}

func (e *DependencyNotDeployedError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("dependency not deployed: %s (required by %s) in environment %s", e.Unit, e.RequiredBy, e.Environment)
	}
	return fmt.Sprintf("dependency not deployed: %s in environment %s", e.Unit, e.Environment)
}

func (e *DependencyNotDeployedError) Class() ErrorClass { return ClassDependency }

// UpgradeOrderError is returned when an upgrade step is applied before its predecessor
type UpgradeOrderError struct {
	Unit     string
	Recorded int
	Step     int
}

func (e *UpgradeOrderError) Error() string {
	return fmt.Sprintf("cannot apply upgrade step %d to %s: registry records step %d, step %d must be applied first",
		e.Step, e.Unit, e.Recorded, e.Step-1)
}

func (e *UpgradeOrderError) Class() ErrorClass { return ClassDependency }

// UpgradeSafetyError is returned when an implementation fails validation
type UpgradeSafetyError struct {
	Unit     string
	Contract string
	Err      error
}

func (e *UpgradeSafetyError) Error() string {
	return fmt.Sprintf("upgrade safety check failed for %s (%s): %v", e.Unit, e.Contract, e.Err)
}

func (e *UpgradeSafetyError) Unwrap() error { return e.Err }

func (e *UpgradeSafetyError) Class() ErrorClass { return ClassUpgradeSafety }

// TransactionError wraps a reverted or failed on-chain call
type TransactionError struct {
	Unit   string
	Action string
	TxHash string
	Err    error
}

func (e *TransactionError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("transaction failed for %s (%s, tx %s): %v", e.Unit, e.Action, e.TxHash, e.Err)
	}
	return fmt.Sprintf("transaction failed for %s (%s): %v", e.Unit, e.Action, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Class() ErrorClass { return ClassTransaction }

// VerificationError is the non-fatal outcome of a failed verification
type VerificationError struct {
	Unit     string
	Provider string
	Err      error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification of %s via %s failed: %v", e.Unit, e.Provider, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Class() ErrorClass { return ClassVerification }

func (e *VerificationError) Is(target error) bool { return target == ErrVerificationFailed }
