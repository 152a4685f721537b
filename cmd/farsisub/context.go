package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"farsisub/internal/config"
	"farsisub/internal/daemonrun"
	"farsisub/internal/logging"
	"farsisub/internal/usage"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// withLedger opens the configured store for the duration of fn.
func (c *commandContext) withLedger(ctx context.Context, fn func(*usage.Ledger, daemonrun.LedgerStore) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := daemonrun.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	ledger := usage.NewLedger(st, cfg.Quota.DailyLimitSeconds, usage.WithLogger(logging.NewNop()))
	return fn(ledger, st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
