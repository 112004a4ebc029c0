package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR_NAME} references in TOML values
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// GenerateEnvVarName generates a conventional env var name for a network's RPC URL.
// Examples: arbitrum -> ARBITRUM_RPC_URL, arbitrum-sepolia -> ARBITRUM_SEPOLIA_RPC_URL
func GenerateEnvVarName(networkName string) string {
	name := strings.ToUpper(networkName)
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)
	return name + "_RPC_URL"
}

// expandEnv replaces ${VAR} references and returns the names of variables
// that were not set.
func expandEnv(value string) (string, []string) {
	var missing []string
	expanded := envVarPattern.ReplaceAllStringFunc(value, func(ref string) string {
		name := envVarPattern.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	return expanded, missing
}
