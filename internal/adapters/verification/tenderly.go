package verification

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/usecase"
)

const (
	DefaultTenderlyAPI  = "https://api.tenderly.co"
	tenderlyDashboard   = "https://dashboard.tenderly.co"
	tenderlyHTTPTimeout = 60 * time.Second
)

type tenderlySource struct {
	Name       string `json:"name"`
	SourcePath string `json:"sourcePath"`
	Source     string `json:"source"`
}

type tenderlyContract struct {
	ContractName string                     `json:"contractName"`
	SourcePath   string                     `json:"sourcePath"`
	Networks     map[string]tenderlyNetwork `json:"networks"`
	Compiler     tenderlyCompiler           `json:"compiler"`
}

type tenderlyNetwork struct {
	Address string `json:"address"`
}

type tenderlyCompiler struct {
	Version string `json:"version"`
}

type tenderlyConfig struct {
	OptimizationsUsed  bool   `json:"optimizations_used"`
	OptimizationsCount uint   `json:"optimizations_count"`
	EvmVersion         string `json:"evm_version,omitempty"`
}

type tenderlyRequest struct {
	Config    tenderlyConfig     `json:"config"`
	Contracts []tenderlyContract `json:"contracts"`
	Sources   []tenderlySource   `json:"sources"`
}

type tenderlyError struct {
	Error struct {
		Slug    string `json:"slug"`
		Message string `json:"message"`
	} `json:"error"`
}

// TenderlyVerifier uploads sources to a Tenderly project
type TenderlyVerifier struct {
	projectRoot string
	account     string
	project     string
	accessKey   string
	client      *resty.Client
	log         *slog.Logger
}

// NewTenderlyVerifier creates a verifier for [verification.tenderly]
func NewTenderlyVerifier(cfg *config.RuntimeConfig, tcfg config.TenderlyConfig, log *slog.Logger) *TenderlyVerifier {
	apiURL := tcfg.APIURL
	if apiURL == "" {
		apiURL = DefaultTenderlyAPI
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/")).
		SetTimeout(tenderlyHTTPTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Access-Key", tcfg.AccessKey)

	return &TenderlyVerifier{
		projectRoot: cfg.ProjectRoot,
		account:     tcfg.Account,
		project:     tcfg.Project,
		accessKey:   tcfg.AccessKey,
		client:      client,
		log:         log.With("component", "tenderly"),
	}
}

func (v *TenderlyVerifier) Provider() string {
	return config.VerifierTenderly
}

// Verify submits the compilation target and every source it imports
func (v *TenderlyVerifier) Verify(ctx context.Context, req usecase.VerificationRequest) (string, error) {
	if v.account == "" || v.project == "" || v.accessKey == "" {
		return "", fmt.Errorf("tenderly account, project and access_key must be set in [verification.tenderly]")
	}
	if req.Contract == nil || req.Contract.Artifact == nil {
		return "", fmt.Errorf("no artifact for %s", req.Address)
	}
	if req.Environment == nil {
		return "", fmt.Errorf("no environment for %s", req.Address)
	}

	body, err := v.buildRequest(req)
	if err != nil {
		return "", err
	}

	var apiErr tenderlyError
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(fmt.Sprintf("/api/v1/account/%s/project/%s/contracts/verify", v.account, v.project))
	if err != nil {
		return "", fmt.Errorf("tenderly request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", fmt.Errorf("tenderly returned %d: %s", resp.StatusCode(), msg)
	}

	v.log.Debug("verified", "contract", req.Contract.Name, "address", req.Address)
	return fmt.Sprintf("%s/%s/%s/contract/%d/%s", tenderlyDashboard, v.account, v.project, req.Environment.ChainID, strings.ToLower(req.Address)), nil
}

func (v *TenderlyVerifier) buildRequest(req usecase.VerificationRequest) (*tenderlyRequest, error) {
	meta := req.Contract.Artifact.Metadata
	body := &tenderlyRequest{
		Config: tenderlyConfig{
			OptimizationsUsed:  meta.Settings.Optimizer.Enabled,
			OptimizationsCount: meta.Settings.Optimizer.Runs,
			EvmVersion:         meta.Settings.EvmVersion,
		},
		Contracts: []tenderlyContract{{
			ContractName: req.Contract.Name,
			SourcePath:   req.Contract.Path,
			Networks: map[string]tenderlyNetwork{
				strconv.FormatUint(req.Environment.ChainID, 10): {Address: req.Address},
			},
			Compiler: tenderlyCompiler{Version: strings.SplitN(meta.Compiler.Version, "+", 2)[0]},
		}},
	}

	paths := make([]string, 0, len(meta.Sources))
	for path := range meta.Sources {
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		paths = append(paths, req.Contract.Path)
	}
	for _, path := range paths {
		source, err := os.ReadFile(filepath.Join(v.projectRoot, path))
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", path, err)
		}
		body.Sources = append(body.Sources, tenderlySource{
			Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			SourcePath: path,
			Source:     string(source),
		})
	}
	return body, nil
}

var _ usecase.ContractVerifier = (*TenderlyVerifier)(nil)
