package verification

import (
	"fmt"
	"log/slog"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// NewVerifier returns the provider named in [verification].provider,
// tenderly when none is set.
func NewVerifier(cfg *config.RuntimeConfig, log *slog.Logger) (usecase.ContractVerifier, error) {
	var vcfg config.VerificationConfig
	if cfg.ProjectConfig != nil {
		vcfg = cfg.ProjectConfig.Verification
	}

	switch vcfg.Provider {
	case "", config.VerifierTenderly:
		return NewTenderlyVerifier(cfg, vcfg.Tenderly, log), nil
	case config.VerifierEtherscan:
		return NewEtherscanVerifier(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown verification provider %q (supported: %s, %s)",
			vcfg.Provider, config.VerifierTenderly, config.VerifierEtherscan)
	}
}
