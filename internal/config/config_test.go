package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultEngineConfigValid(t *testing.T) {
	cfg := DefaultEngineConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default engine config should be valid: %v", err)
	}
	if cfg.ItemTimeout() != 30*time.Second {
		t.Fatalf("unexpected item timeout: %s", cfg.ItemTimeout())
	}
}

func TestEngineConfigValidateRejectsInvalid(t *testing.T) {
	cases := map[string]func(*EngineConfig){
		"policy":   func(c *EngineConfig) { c.CommissionPolicy = "upline_only" },
		"root":     func(c *EngineConfig) { c.RootAccountID = 0 },
		"timezone": func(c *EngineConfig) { c.Timezone = "Mars/Olympus" },
		"rate":     func(c *EngineConfig) { c.FallbackDailyRate = "half" },
		"zero":     func(c *EngineConfig) { c.FallbackDailyRate = "0" },
		"over":     func(c *EngineConfig) { c.FallbackDailyRate = "120" },
		"timeout":  func(c *EngineConfig) { c.ItemTimeoutSeconds = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultEngineConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSetDefaultsUnmarshal(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	if cfg.Engine.RootAccountID != 1 || !cfg.Engine.AtomicUnit {
		t.Fatalf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Metrics.Addr() != "0.0.0.0:9464" {
		t.Fatalf("unexpected metrics addr: %s", cfg.Metrics.Addr())
	}
	if cfg.Queue.Queues["critical"] != 5 {
		t.Fatalf("unexpected queue weights: %+v", cfg.Queue.Queues)
	}
}
