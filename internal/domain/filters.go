package domain

import (
	"github.com/orange-finance/odeploy/internal/domain/models"
)

// DeploymentFilter defines filtering options for deployments
type DeploymentFilter struct {
	Environment  string
	Kind         string
	ContractName string
	Type         models.DeploymentType
}

// Matches reports whether d passes every non-empty criterion
func (f DeploymentFilter) Matches(d *models.Deployment) bool {
	if f.Environment != "" && d.Environment != f.Environment {
		return false
	}
	if f.Kind != "" && d.Kind != f.Kind {
		return false
	}
	if f.ContractName != "" && d.ContractName != f.ContractName {
		return false
	}
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	return true
}
