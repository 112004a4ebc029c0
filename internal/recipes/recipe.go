// Package recipes describes, per unit kind, how a validated parameter record
// becomes a deployment plan: which contract, which proxy step, which
// initializer and which post-deploy calls.
package recipes

import (
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/domain/params"
)

// MaxUint256 is used for uncapped deposits.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Dependency is a symbolic reference a recipe needs resolved to an address.
type Dependency struct {
	Param string
	// Unit is the registry id of the managed unit providing the address.
	Unit string
	// Override is a verbatim address from the record that wins over Unit.
	Override string
}

// Input is what Plan receives once parameters and dependencies are resolved.
type Input struct {
	Environment *config.Environment
	Unit        string
	Values      map[string]any
	Deployer    common.Address
	Deps        map[string]common.Address
}

// Recipe turns one unit kind's parameters into a plan.
type Recipe interface {
	Kind() string
	Schema() params.Schema
	// Dependencies lists the managed units the record refers to.
	Dependencies(values map[string]any) ([]Dependency, error)
	Plan(in Input) (*models.DeployPlan, error)
}

// Registry maps unit kinds to recipes.
type Registry struct {
	recipes map[string]Recipe
}

// NewRegistry returns a registry holding every built-in recipe.
func NewRegistry() *Registry {
	r := &Registry{recipes: make(map[string]Recipe)}
	for _, recipe := range []Recipe{
		AutomatorV1_1{},
		AutomatorV2{},
		AutomatorV2_1{},
		ChainlinkQuoter{},
		TWAPQuoter{},
		SwapProxy{},
		PoolAdapter{},
		Periphery{},
	} {
		r.recipes[recipe.Kind()] = recipe
	}
	return r
}

// deployOrder lists kinds so that every unit comes after the units it
// depends on and every upgrade step after its predecessor.
var deployOrder = []string{
	params.KindPeriphery,
	params.KindPoolAdapter,
	params.KindChainlinkQuoter,
	params.KindTWAPQuoter,
	params.KindSwapProxy,
	params.KindAutomatorV1_1,
	params.KindAutomatorV2,
	params.KindAutomatorV2_1,
}

// Ordered returns the known kinds in deployment order.
func (r *Registry) Ordered() []string {
	out := make([]string, 0, len(r.recipes))
	for _, kind := range deployOrder {
		if _, ok := r.recipes[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// Compare orders kinds by deployment order.
func (r *Registry) Compare(a, b string) int {
	return slices.Index(deployOrder, a) - slices.Index(deployOrder, b)
}

// Get returns the recipe for kind.
func (r *Registry) Get(kind string) (Recipe, error) {
	recipe, ok := r.recipes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown unit kind %q (known: %s)", kind, strings.Join(r.Kinds(), ", "))
	}
	return recipe, nil
}

// Kinds returns the known kinds sorted.
func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.recipes))
}

func mustVersion(v string) string {
	return semver.MustParse(v).String()
}

func dep(in Input, param string) (common.Address, error) {
	addr, ok := in.Deps[param]
	if !ok {
		return common.Address{}, fmt.Errorf("dependency %q was not resolved", param)
	}
	return addr, nil
}

func sameAddress(a string, b common.Address) bool {
	return common.HexToAddress(a) == b
}
