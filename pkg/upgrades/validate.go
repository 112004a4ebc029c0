package upgrades

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/pkg/solc"
)

// Kind is the proxy pattern an implementation is deployed behind.
type Kind string

const (
	KindUUPS        Kind = "uups"
	KindTransparent Kind = "transparent"
)

// Implementation is the compiled candidate implementation under validation.
type Implementation struct {
	Name       string
	ABI        abi.ABI
	Layout     *solc.StorageLayout
	ContractID int
	Index      ContractIndex
}

// Options mirror the knobs an upgrade step can set.
type Options struct {
	Kind        Kind
	UnsafeAllow []UnsafeOp
}

// ValidateImplementation checks that impl can live behind a proxy of the
// requested kind. Every problem found is returned, not just the first.
func ValidateImplementation(impl Implementation, opts Options) error {
	var result *multierror.Error

	if impl.Index != nil {
		if err := CheckUnsafe(impl.Index, impl.ContractID, opts.UnsafeAllow); err != nil {
			result = multierror.Append(result, err)
		}
	} else {
		result = multierror.Append(result, fmt.Errorf("no AST available for %s; build with ast = true", impl.Name))
	}

	if err := checkKind(impl, opts.Kind); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ValidateUpgrade runs ValidateImplementation and then compares the storage
// layout of impl with the layout recorded for the live implementation.
func ValidateUpgrade(current *solc.StorageLayout, impl Implementation, opts Options) error {
	var result *multierror.Error

	if err := ValidateImplementation(impl, opts); err != nil {
		result = multierror.Append(result, err)
	}

	switch {
	case current == nil:
		result = multierror.Append(result, fmt.Errorf("no storage layout recorded for the current implementation"))
	case impl.Layout == nil:
		result = multierror.Append(result, fmt.Errorf("no storage layout in artifact %s; add storageLayout to extra_output", impl.Name))
	default:
		if err := CompareLayouts(current, impl.Layout); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func checkKind(impl Implementation, kind Kind) error {
	switch kind {
	case KindUUPS:
		if _, ok := impl.ABI.Methods["upgradeToAndCall"]; !ok {
			return fmt.Errorf("%s is not UUPS upgradeable: missing upgradeToAndCall(address,bytes)", impl.Name)
		}
		if _, ok := impl.ABI.Methods["proxiableUUID"]; !ok {
			return fmt.Errorf("%s is not UUPS upgradeable: missing proxiableUUID()", impl.Name)
		}
	case KindTransparent:
		if _, ok := impl.ABI.Methods["upgradeToAndCall"]; ok {
			return fmt.Errorf("%s exposes upgradeToAndCall and cannot sit behind a transparent proxy", impl.Name)
		}
	default:
		return fmt.Errorf("unknown proxy kind %q", kind)
	}
	return nil
}
