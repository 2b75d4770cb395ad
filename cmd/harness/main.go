package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/satoshispalace/contest-harness/pkg/app/harness"
	"github.com/satoshispalace/contest-harness/pkg/config"
)

var (
	configPath = flag.String("config", "config.harness.yaml", "Path to configuration file")
	envPath    = flag.String("env", ".env", "Path to env file with CHAIN_ID, RPC_URL and MNEMONIC")
)

func main() {
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadHarness(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := harness.NewServer(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Harness failed: %v\n", err)
		os.Exit(1)
	}
}
