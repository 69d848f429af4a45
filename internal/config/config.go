// engine/internal/config/config.go
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Website struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Status   string `yaml:"status"`
}

type Config struct {
	App struct {
		Port int `yaml:"port"`
	} `yaml:"app"`

	Crawl struct {
		UserAgent         string  `yaml:"user_agent"`
		SiteBudgetSeconds int     `yaml:"site_budget_seconds"`
		RequestTimeoutSec int     `yaml:"request_timeout_seconds"`
		Concurrency       int     `yaml:"concurrency"`
		InterSiteDelayMS  int     `yaml:"inter_site_delay_ms"`
		PerHostRPS        float64 `yaml:"per_host_rps"`
		PerHostBurst      int     `yaml:"per_host_burst"`
	} `yaml:"crawl"`

	Progress struct {
		TTLMinutes   int `yaml:"ttl_minutes"`
		SweepSeconds int `yaml:"sweep_seconds"`
	} `yaml:"progress"`

	// Seed website registry, upserted into the websites table at startup.
	Websites []Website `yaml:"websites"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 38510
	}
	if c.Crawl.UserAgent == "" {
		c.Crawl.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.Crawl.SiteBudgetSeconds <= 0 {
		c.Crawl.SiteBudgetSeconds = 5
	}
	if c.Crawl.RequestTimeoutSec <= 0 {
		c.Crawl.RequestTimeoutSec = 3
	}
	if c.Crawl.Concurrency <= 0 {
		c.Crawl.Concurrency = 4
	}
	if c.Crawl.InterSiteDelayMS <= 0 {
		c.Crawl.InterSiteDelayMS = 500
	}
	if c.Crawl.PerHostRPS <= 0 {
		c.Crawl.PerHostRPS = 1
	}
	if c.Crawl.PerHostBurst <= 0 {
		c.Crawl.PerHostBurst = 2
	}
	if c.Progress.TTLMinutes <= 0 {
		c.Progress.TTLMinutes = 30
	}
	if c.Progress.SweepSeconds <= 0 {
		c.Progress.SweepSeconds = 60
	}
}

func (c Config) SiteBudget() time.Duration {
	return time.Duration(c.Crawl.SiteBudgetSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawl.RequestTimeoutSec) * time.Second
}

func (c Config) InterSiteDelay() time.Duration {
	return time.Duration(c.Crawl.InterSiteDelayMS) * time.Millisecond
}

func (c Config) ProgressTTL() time.Duration {
	return time.Duration(c.Progress.TTLMinutes) * time.Minute
}

func (c Config) ProgressSweep() time.Duration {
	return time.Duration(c.Progress.SweepSeconds) * time.Second
}
