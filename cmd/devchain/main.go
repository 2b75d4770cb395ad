package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/satoshispalace/contest-harness/pkg/app/devchain"
	"github.com/satoshispalace/contest-harness/pkg/config"
)

var (
	configPath = flag.String("config", "config.devchain.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadDevchain(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := devchain.NewServer(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Devchain failed: %v\n", err)
		os.Exit(1)
	}
}
