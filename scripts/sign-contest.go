//go:build ignore

// This script signs the contest configured in a harness config with an oracle key,
// printing the values for scenario.signature_hex and contracts.contest.oracle_public_key.
// Run with: go run scripts/sign-contest.go -config config.harness.yaml -key <hex>

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/satoshispalace/contest-harness/pkg/config"
	"github.com/satoshispalace/contest-harness/pkg/oracle"
	"github.com/satoshispalace/contest-harness/pkg/scenario"
)

func main() {
	cfgPath := flag.String("config", "config.harness.yaml", "Path to configuration file")
	key := flag.String("key", "", "Hex secp256k1 oracle key, a new key is generated when empty")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadHarness(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var signer *oracle.Signer
	if *key != "" {
		signer, err = oracle.NewSigner(*key)
	} else {
		signer, err = oracle.GenerateSigner()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading key: %v\n", err)
		os.Exit(1)
	}

	sig, err := signer.Sign(scenario.ContestInfo(cfg.Scenario.Contest))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing contest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("oracle_key:        %s\n", signer.PrivateKeyHex())
	fmt.Printf("oracle_public_key: %s\n", signer.PublicKeyHex())
	fmt.Printf("signature_hex:     %s\n", sig)
}
