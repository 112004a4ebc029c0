package deployments

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

type memoryKey struct {
	env string
	id  string
}

// MemoryRepository keeps deployments in memory. It backs tests and dry runs
// that must not touch the registry files.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[memoryKey]*models.Deployment
	saves   int
}

// NewMemoryRepository creates a repository holding the given records
func NewMemoryRepository(seed ...*models.Deployment) *MemoryRepository {
	r := &MemoryRepository{records: make(map[memoryKey]*models.Deployment)}
	for _, d := range seed {
		r.records[memoryKey{d.Environment, d.ID}] = d.Clone()
	}
	return r
}

// Saves returns how many times SaveDeployment succeeded
func (r *MemoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func (r *MemoryRepository) GetDeployment(ctx context.Context, env, id string) (*models.Deployment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.records[memoryKey{env, id}]
	if !ok {
		return nil, fmt.Errorf("deployment %s in %s: %w", id, env, domain.ErrNotFound)
	}
	return d.Clone(), nil
}

func (r *MemoryRepository) ListDeployments(ctx context.Context, filter domain.DeploymentFilter) ([]*models.Deployment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Deployment
	for _, d := range r.records {
		if filter.Matches(d) {
			result = append(result, d.Clone())
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

func (r *MemoryRepository) SaveDeployment(ctx context.Context, deployment *models.Deployment) error {
	if deployment.ID == "" || deployment.Environment == "" {
		return fmt.Errorf("deployment id and environment are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if deployment.CreatedAt.IsZero() {
		deployment.CreatedAt = now
	}
	deployment.UpdatedAt = now
	r.records[memoryKey{deployment.Environment, deployment.ID}] = deployment.Clone()
	r.saves++
	return nil
}

func (r *MemoryRepository) DeleteDeployment(ctx context.Context, env, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey{env, id}
	if _, ok := r.records[key]; !ok {
		return fmt.Errorf("deployment %s in %s: %w", id, env, domain.ErrNotFound)
	}
	delete(r.records, key)
	return nil
}

var _ usecase.DeploymentRepository = (*MemoryRepository)(nil)
