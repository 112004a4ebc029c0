package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/recipes"
	"github.com/sahilm/fuzzy"
)

const maxSuggestions = 3

// ResolveParameters owns the validated parameter catalog of the selected
// environment. Every parameter file is read and validated once, on first
// use, into an explicit (kind, environment, unit) map; lookups never touch
// the filesystem.
type ResolveParameters struct {
	config  *config.RuntimeConfig
	store   ParameterStore
	recipes *recipes.Registry

	mu     sync.Mutex
	loaded map[string]bool
	sets   map[models.ParameterKey]*models.ParameterSet
}

// NewResolveParameters creates a new ResolveParameters use case
func NewResolveParameters(cfg *config.RuntimeConfig, store ParameterStore, registry *recipes.Registry) *ResolveParameters {
	return &ResolveParameters{
		config:  cfg,
		store:   store,
		recipes: registry,
		loaded:  make(map[string]bool),
		sets:    make(map[models.ParameterKey]*models.ParameterSet),
	}
}

// Load populates the catalog for environment. It fails only for an unknown
// environment or an unreadable parameter directory; per-file problems are
// kept on the set and surface when that unit is resolved.
func (uc *ResolveParameters) Load(ctx context.Context, environment string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.load(ctx, environment)
}

func (uc *ResolveParameters) load(ctx context.Context, environment string) error {
	if uc.loaded[environment] {
		return nil
	}
	if err := uc.checkEnvironment(environment); err != nil {
		return err
	}

	sets, err := uc.store.LoadParameterSets(ctx, environment)
	if err != nil {
		return fmt.Errorf("failed to load parameters for %s: %w", environment, err)
	}

	for _, set := range sets {
		uc.validate(set)
		uc.sets[set.ParameterKey] = set
	}
	uc.loaded[environment] = true
	return nil
}

func (uc *ResolveParameters) validate(set *models.ParameterSet) {
	if set.Err != nil {
		return
	}
	recipe, err := uc.recipes.Get(set.Kind)
	if err != nil {
		set.Err = err
		return
	}
	values, err := recipe.Schema().Validate(set.Raw)
	if err != nil {
		schemaErr := &domain.SchemaError{Kind: set.Kind, Environment: set.Environment, Unit: set.Unit}
		var merr *multierror.Error
		if errors.As(err, &merr) {
			schemaErr.Violations = merr.WrappedErrors()
		} else {
			schemaErr.Violations = []error{err}
		}
		set.Err = schemaErr
		return
	}
	set.Values = values
}

func (uc *ResolveParameters) checkEnvironment(environment string) error {
	if uc.config.ProjectConfig == nil {
		return &domain.UnknownEnvironmentError{Environment: environment}
	}
	if _, ok := uc.config.ProjectConfig.Environments[environment]; !ok {
		return &domain.UnknownEnvironmentError{
			Environment: environment,
			Known:       slices.Sorted(maps.Keys(uc.config.ProjectConfig.Environments)),
		}
	}
	return nil
}

// Resolve returns the validated record of one unit.
func (uc *ResolveParameters) Resolve(ctx context.Context, key models.ParameterKey) (*models.ParameterSet, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.load(ctx, key.Environment); err != nil {
		return nil, err
	}

	set, ok := uc.sets[key]
	if !ok {
		return nil, &domain.ParameterSetNotFoundError{
			Kind:        key.Kind,
			Environment: key.Environment,
			Unit:        key.Unit,
			Suggestions: uc.suggest(key),
		}
	}
	if set.Err != nil {
		return set, set.Err
	}
	return set, nil
}

// List returns every parameter set of environment, valid or not, ordered
// by kind and unit.
func (uc *ResolveParameters) List(ctx context.Context, environment string) ([]*models.ParameterSet, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.load(ctx, environment); err != nil {
		return nil, err
	}

	var out []*models.ParameterSet
	for key, set := range uc.sets {
		if key.Environment == environment {
			out = append(out, set)
		}
	}
	slices.SortFunc(out, func(a, b *models.ParameterSet) int {
		if a.Kind != b.Kind {
			return uc.recipes.Compare(a.Kind, b.Kind)
		}
		if a.Unit < b.Unit {
			return -1
		}
		if a.Unit > b.Unit {
			return 1
		}
		return 0
	})
	return out, nil
}

// suggest proposes units of the same kind and environment whose names are
// close to the requested one. The pattern is shortened from the end until
// something matches, so "WETH-USDT" still finds "WETH-USDC".
func (uc *ResolveParameters) suggest(key models.ParameterKey) []string {
	var candidates []string
	for k := range uc.sets {
		if k.Kind == key.Kind && k.Environment == key.Environment {
			candidates = append(candidates, k.Unit)
		}
	}
	slices.Sort(candidates)

	var matches fuzzy.Matches
	for pattern := key.Unit; len(pattern) >= 3 && len(matches) == 0; pattern = pattern[:len(pattern)-1] {
		matches = fuzzy.Find(pattern, candidates)
	}
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
