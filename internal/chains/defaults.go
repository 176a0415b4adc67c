package chains

import (
	"fmt"
	"strings"
)

// knownExplorers fills in block explorers for well-known chains whose
// config entry leaves Explorer empty.
var knownExplorers = map[string]string{
	"0x1":      "https://etherscan.io",
	"0x4":      "https://rinkeby.etherscan.io",
	"0xaa36a7": "https://sepolia.etherscan.io",
	"0x4268":   "https://holesky.etherscan.io",

	"0xa4b1":  "https://arbiscan.io",
	"0x66eed": "https://sepolia.arbiscan.io",
	"0xa":     "https://optimistic.etherscan.io",
	"0x2105":  "https://basescan.org",
	"0x14a34": "https://sepolia.basescan.org",
	"0x89":    "https://polygonscan.com",
}

func explorerFor(network NetworkConfig) string {
	if e := strings.TrimSpace(network.Explorer); e != "" {
		return strings.TrimRight(e, "/")
	}
	return knownExplorers[chainIDHex(network)]
}

// chainIDHex prefers the configured hex id and derives it from ChainID
// otherwise.
func chainIDHex(network NetworkConfig) string {
	if network.ChainIDHex != "" {
		return strings.ToLower(network.ChainIDHex)
	}
	if network.ChainID == 0 {
		return ""
	}
	return fmt.Sprintf("0x%x", network.ChainID)
}
