package answercompanyquery

import (
	"fmt"
	"time"

	"company-intel/internal/common/config"
)

type Config struct {
	Enabled    bool
	Timeout    time.Duration
	MaxRetries int
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	wc := config.GetWorkerConfig(appConfig, TaskType)
	return &Config{
		Enabled:    wc.Enabled,
		Timeout:    config.GetDuration(wc.Timeout),
		MaxRetries: wc.MaxRetries,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}
