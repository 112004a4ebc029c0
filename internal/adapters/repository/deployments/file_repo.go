package deployments

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

const (
	DataDir        = ".odeploy"
	DeploymentsDir = "deployments"
	registryFormat = "1"
)

// registryFile is the on-disk layout of one environment
type registryFile struct {
	Version     string                        `json:"version"`
	Environment string                        `json:"environment"`
	ChainID     uint64                        `json:"chainId,omitempty"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
	Deployments map[string]*models.Deployment `json:"deployments"`
}

// FileRepository stores the deployments of each environment in
// <data dir>/deployments/<env>.json
type FileRepository struct {
	dir    string
	mu     sync.RWMutex
	loaded map[string]map[string]*models.Deployment
}

// NewFileRepository creates a repository rooted at dataDir
func NewFileRepository(dataDir string) (*FileRepository, error) {
	dir := filepath.Join(dataDir, DeploymentsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &FileRepository{
		dir:    dir,
		loaded: make(map[string]map[string]*models.Deployment),
	}, nil
}

// NewFileRepositoryFromConfig creates the repository for the runtime config
func NewFileRepositoryFromConfig(cfg *config.RuntimeConfig) (*FileRepository, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(cfg.ProjectRoot, DataDir)
	}
	return NewFileRepository(dataDir)
}

// Path returns the registry file of env
func (r *FileRepository) Path(env string) string {
	return filepath.Join(r.dir, env+".json")
}

// environment returns the records of env, loading them on first use.
// Callers hold the write lock.
func (r *FileRepository) environment(env string) (map[string]*models.Deployment, error) {
	if env == "" {
		return nil, fmt.Errorf("environment is required")
	}
	if records, ok := r.loaded[env]; ok {
		return records, nil
	}

	records := make(map[string]*models.Deployment)
	data, err := os.ReadFile(r.Path(env))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read registry of %s: %w", env, err)
	default:
		var file registryFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", r.Path(env), err)
		}
		for id, d := range file.Deployments {
			if d == nil {
				continue
			}
			d.ID = id
			d.Environment = env
			records[id] = d
		}
	}

	r.loaded[env] = records
	return records, nil
}

// environments lists every environment with a registry file or loaded state
func (r *FileRepository) environments() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", r.dir, err)
	}

	var envs []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		envs = append(envs, strings.TrimSuffix(e.Name(), ".json"))
	}
	for env := range r.loaded {
		if !slices.Contains(envs, env) {
			envs = append(envs, env)
		}
	}
	slices.Sort(envs)
	return envs, nil
}

// save writes env to a temp file and renames it into place
func (r *FileRepository) save(env string) error {
	records := r.loaded[env]
	file := registryFile{
		Version:     registryFormat,
		Environment: env,
		UpdatedAt:   time.Now().UTC(),
		Deployments: records,
	}
	for _, d := range records {
		file.ChainID = d.ChainID
		break
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path(env)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// GetDeployment retrieves a deployment by environment and unit id
func (r *FileRepository) GetDeployment(ctx context.Context, env, id string) (*models.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.environment(env)
	if err != nil {
		return nil, err
	}
	d, ok := records[id]
	if !ok {
		return nil, fmt.Errorf("deployment %s in %s: %w", id, env, domain.ErrNotFound)
	}
	return d.Clone(), nil
}

// ListDeployments retrieves deployments matching the filter. An empty
// environment lists every registry file.
func (r *FileRepository) ListDeployments(ctx context.Context, filter domain.DeploymentFilter) ([]*models.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	envs := []string{filter.Environment}
	if filter.Environment == "" {
		var err error
		if envs, err = r.environments(); err != nil {
			return nil, err
		}
	}

	var result []*models.Deployment
	for _, env := range envs {
		records, err := r.environment(env)
		if err != nil {
			return nil, err
		}
		for _, d := range records {
			if filter.Matches(d) {
				result = append(result, d.Clone())
			}
		}
	}
	slices.SortFunc(result, func(a, b *models.Deployment) int {
		if c := strings.Compare(a.Environment, b.Environment); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

// SaveDeployment saves or updates a deployment and persists its environment
func (r *FileRepository) SaveDeployment(ctx context.Context, deployment *models.Deployment) error {
	if deployment.ID == "" {
		return fmt.Errorf("deployment id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.environment(deployment.Environment)
	if err != nil {
		return err
	}

	now := time.Now()
	if deployment.CreatedAt.IsZero() {
		deployment.CreatedAt = now
	}
	deployment.UpdatedAt = now

	previous, existed := records[deployment.ID]
	records[deployment.ID] = deployment.Clone()
	if err := r.save(deployment.Environment); err != nil {
		if existed {
			records[deployment.ID] = previous
		} else {
			delete(records, deployment.ID)
		}
		return fmt.Errorf("failed to write registry of %s: %w", deployment.Environment, err)
	}
	return nil
}

// DeleteDeployment removes a deployment by environment and unit id
func (r *FileRepository) DeleteDeployment(ctx context.Context, env, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.environment(env)
	if err != nil {
		return err
	}
	previous, ok := records[id]
	if !ok {
		return fmt.Errorf("deployment %s in %s: %w", id, env, domain.ErrNotFound)
	}
	delete(records, id)
	if err := r.save(env); err != nil {
		records[id] = previous
		return fmt.Errorf("failed to write registry of %s: %w", env, err)
	}
	return nil
}

var _ usecase.DeploymentRepository = (*FileRepository)(nil)
