package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gistcast/internal/config"
	"gistcast/internal/queueaccess"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
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
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withQueue opens queue access for the duration of fn and closes it after.
func (c *commandContext) withQueue(fn func(*queueaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	access, err := queueaccess.Open(cfg)
	if err != nil {
		return err
	}
	defer access.Close()
	return fn(access)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
