// Command farsisubd runs the farsisub HTTP server with the default (or
// FARSISUB_CONFIG) configuration. It is the entrypoint for service managers
// and containers; operators use `farsisub serve` interactively.
package main

import (
	"context"
	"log"
	"os"

	"farsisub/internal/config"
	"farsisub/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("FARSISUB_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateTranslationCredentials(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("farsisubd: %v", err)
	}
}
