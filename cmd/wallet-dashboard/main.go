package main

import (
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	log.Info("wallet-dashboard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal("command failed", "error", err)
	}
}
