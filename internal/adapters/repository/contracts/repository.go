package contracts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/orange-finance/odeploy/pkg/solc"
	"github.com/orange-finance/odeploy/pkg/upgrades"
)

// BuildFunc compiles the project so the artifact directory exists
type BuildFunc func(ctx context.Context, projectRoot string) error

// Repository discovers and indexes contracts and their artifacts
type Repository struct {
	projectRoot   string
	outDir        string
	build         BuildFunc
	contracts     map[string]*models.Contract   // key: "path:contractName"
	contractNames map[string][]*models.Contract // key: contract name
	astIndex      upgrades.ContractIndex
	log           *slog.Logger
	mu            sync.Mutex
	indexed       bool
}

// NewRepository creates a new contract indexer
func NewRepository(cfg *config.RuntimeConfig, log *slog.Logger) *Repository {
	return &Repository{
		projectRoot: cfg.ProjectRoot,
		outDir:      filepath.Join(cfg.ProjectRoot, cfg.FoundryConfig.OutDir()),
		build:       ForgeBuild,
		log:         log.With("component", "contracts"),
	}
}

// WithBuild replaces the compiler invocation, used by tests
func (i *Repository) WithBuild(build BuildFunc) *Repository {
	i.build = build
	return i
}

// index discovers all contracts and artifacts once. Callers hold the lock.
func (i *Repository) index(ctx context.Context) error {
	if i.indexed {
		return nil
	}

	if _, err := os.Stat(i.outDir); os.IsNotExist(err) {
		i.log.Info("artifact directory missing, running forge build", "dir", i.outDir)
		if err := i.build(ctx, i.projectRoot); err != nil {
			return fmt.Errorf("failed to build contracts: %w", err)
		}
		if _, err := os.Stat(i.outDir); err != nil {
			return fmt.Errorf("artifact directory %s not found after forge build", i.outDir)
		}
	}

	i.contracts = make(map[string]*models.Contract)
	i.contractNames = make(map[string][]*models.Contract)
	i.astIndex = make(upgrades.ContractIndex)

	err := filepath.WalkDir(i.outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}
		return i.processArtifact(path)
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", i.outDir, err)
	}

	i.log.Debug("indexed artifacts", "contracts", len(i.contracts), "definitions", len(i.astIndex))
	i.indexed = true
	return nil
}

// processArtifact processes a single artifact file
func (i *Repository) processArtifact(artifactPath string) error {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return err
	}

	artifact, err := solc.ParseForgeArtifact(data)
	if err != nil {
		// Not every json under out/ is an artifact
		i.log.Debug("skipping unparsable artifact", "path", artifactPath, "error", err)
		return nil
	}

	if artifact.Ast != nil {
		i.astIndex.Add(artifact.Ast)
	}

	// Interfaces and abstract contracts carry no creation code
	if artifact.Bytecode.Object == "" || artifact.Bytecode.Object == "0x" {
		return nil
	}

	var contractName, sourceName string
	for source, contract := range artifact.Metadata.Settings.CompilationTarget {
		sourceName = source
		contractName = contract
	}
	if contractName == "" || sourceName == "" {
		return nil
	}

	relArtifactPath, _ := filepath.Rel(i.projectRoot, artifactPath)
	info := &models.Contract{
		Name:         contractName,
		Path:         sourceName,
		ArtifactPath: relArtifactPath,
		Artifact:     artifact,
	}

	i.contracts[info.Key()] = info
	i.contractNames[info.Name] = append(i.contractNames[info.Name], info)
	return nil
}

// GetContract retrieves a contract by "path:Name" or by a unique name
func (i *Repository) GetContract(ctx context.Context, key string) (*models.Contract, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index(ctx); err != nil {
		return nil, err
	}

	if contract, ok := i.contracts[key]; ok {
		return contract, nil
	}

	candidates := i.contractNames[key]
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, key)
	case 1:
		return candidates[0], nil
	default:
		keys := make([]string, len(candidates))
		for n, c := range candidates {
			keys[n] = c.Key()
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("contract name %s is ambiguous, use one of: %s", key, strings.Join(keys, ", "))
	}
}

// ContractIndex returns every contract definition found in artifact ASTs
func (i *Repository) ContractIndex(ctx context.Context) (upgrades.ContractIndex, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index(ctx); err != nil {
		return nil, err
	}
	return i.astIndex, nil
}

// ForgeBuild runs forge build in the project root
func ForgeBuild(ctx context.Context, projectRoot string) error {
	cmd := exec.CommandContext(ctx, "forge", "build")
	cmd.Dir = projectRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("forge build failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

var _ usecase.ContractRepository = (*Repository)(nil)
