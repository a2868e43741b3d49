package main

import (
	"scribe/internal/config"
)

// commandContext carries the lazily loaded configuration shared by all
// subcommands.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the config file once. A missing file yields defaults;
// validation happens later, after flag overrides are applied.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}
