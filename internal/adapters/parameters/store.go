package parameters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// DefaultDir is the parameter directory when odeploy.toml sets none
const DefaultDir = "deploy/parameters"

var extensions = []string{".yaml", ".yml"}

// Store reads parameter files laid out as <dir>/<kind>/<environment>/<unit>.yaml
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore creates a store over the configured parameter directory
func NewStore(cfg *config.RuntimeConfig, log *slog.Logger) *Store {
	dir := cfg.ParamsDir
	if dir == "" {
		dir = DefaultDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.ProjectRoot, dir)
	}
	return &Store{dir: dir, log: log.With("component", "parameters")}
}

// Dir returns the absolute parameter directory
func (s *Store) Dir() string {
	return s.dir
}

// LoadParameterSets reads every parameter file of environment. A file that
// cannot be read or parsed is returned with Err set so it surfaces only
// when its unit is used.
func (s *Store) LoadParameterSets(ctx context.Context, environment string) ([]*models.ParameterSet, error) {
	kinds, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("parameter directory not found", "dir", s.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read parameter directory: %w", err)
	}

	var sets []*models.ParameterSet
	for _, kind := range kinds {
		if !kind.IsDir() {
			continue
		}
		envDir := filepath.Join(s.dir, kind.Name(), environment)
		files, err := os.ReadDir(envDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envDir, err)
		}

		seen := make(map[string]string)
		for _, file := range files {
			ext := filepath.Ext(file.Name())
			if file.IsDir() || !slices.Contains(extensions, ext) {
				continue
			}
			unit := strings.TrimSuffix(file.Name(), ext)
			path := filepath.Join(envDir, file.Name())

			set := &models.ParameterSet{
				ParameterKey: models.ParameterKey{Kind: kind.Name(), Environment: environment, Unit: unit},
				Path:         path,
			}
			if other, dup := seen[unit]; dup {
				set.Err = fmt.Errorf("%s: unit %s is also defined in %s", path, unit, other)
			} else {
				set.Raw, set.Err = s.readFile(path)
				seen[unit] = path
			}
			s.log.Debug("loaded parameter set", "key", set.ParameterKey.String(), "path", path, "error", set.Err)
			sets = append(sets, set)
		}
	}
	return sets, nil
}

func (s *Store) readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

var _ usecase.ParameterStore = (*Store)(nil)
