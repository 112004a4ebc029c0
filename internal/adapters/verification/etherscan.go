package verification

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// Runner executes forge with args in dir and returns its combined output
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

func runForge(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "forge", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// EtherscanVerifier verifies through forge verify-contract
type EtherscanVerifier struct {
	projectRoot string
	foundry     *config.FoundryConfig
	run         Runner
	log         *slog.Logger
}

// NewEtherscanVerifier creates a forge backed verifier
func NewEtherscanVerifier(cfg *config.RuntimeConfig, log *slog.Logger) *EtherscanVerifier {
	return &EtherscanVerifier{
		projectRoot: cfg.ProjectRoot,
		foundry:     cfg.FoundryConfig,
		run:         runForge,
		log:         log.With("component", "etherscan"),
	}
}

// WithRunner replaces the forge invocation, used by tests
func (v *EtherscanVerifier) WithRunner(run Runner) *EtherscanVerifier {
	v.run = run
	return v
}

func (v *EtherscanVerifier) Provider() string {
	return config.VerifierEtherscan
}

// Verify runs forge verify-contract and waits for the result
func (v *EtherscanVerifier) Verify(ctx context.Context, req usecase.VerificationRequest) (string, error) {
	if req.Contract == nil || req.Environment == nil {
		return "", fmt.Errorf("incomplete verification request for %s", req.Address)
	}

	args := v.args(req)
	v.log.Debug("running forge", "args", strings.Join(args, " "))
	output, err := v.run(ctx, v.projectRoot, args...)
	if alreadyVerified(output) {
		return v.url(req), nil
	}
	if err != nil {
		return "", fmt.Errorf("forge verify-contract failed: %s", strings.TrimSpace(output))
	}
	if !strings.Contains(output, "Contract successfully verified") {
		return "", fmt.Errorf("verification status unclear: %s", strings.TrimSpace(output))
	}
	return v.url(req), nil
}

func (v *EtherscanVerifier) args(req usecase.VerificationRequest) []string {
	env := req.Environment
	args := []string{
		"verify-contract",
		req.Address,
		req.Contract.Key(),
		"--chain-id", fmt.Sprintf("%d", env.ChainID),
		"--watch",
	}

	var apiKey, apiURL string
	if v.foundry != nil {
		name := env.Network
		if name == "" {
			name = env.Name
		}
		if es, ok := v.foundry.Etherscan[name]; ok {
			apiKey, apiURL = es.Key, es.URL
		}
	}
	if apiKey == "" {
		apiKey = os.Getenv("ETHERSCAN_API_KEY")
	}
	if apiURL != "" {
		args = append(args, "--verifier-url", apiURL)
	}
	if apiKey != "" {
		args = append(args, "--etherscan-api-key", apiKey)
	}
	if req.Contract.Artifact != nil && req.Contract.Artifact.Metadata.Compiler.Version != "" {
		args = append(args, "--compiler-version", req.Contract.Artifact.Metadata.Compiler.Version)
	}
	if ctorArgs := strings.TrimPrefix(req.ConstructorArgs, "0x"); ctorArgs != "" {
		args = append(args, "--constructor-args", ctorArgs)
	}
	return args
}

func (v *EtherscanVerifier) url(req usecase.VerificationRequest) string {
	if req.Environment.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s#code", strings.TrimSuffix(req.Environment.ExplorerURL, "/"), req.Address)
}

func alreadyVerified(output string) bool {
	return strings.Contains(output, "Already Verified") ||
		strings.Contains(output, "is already verified") ||
		strings.Contains(output, "already verified")
}

var _ usecase.ContractVerifier = (*EtherscanVerifier)(nil)
