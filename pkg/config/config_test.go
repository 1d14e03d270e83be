package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 10_000, c.Rules.MaxFiredActions)
	assert.Equal(t, 100, c.Rules.MaxChainDepth)
	assert.Equal(t, 100, c.Match.DefaultTransitiveDepth)
	assert.Equal(t, 10_000, c.Match.CollectLimit)
	assert.Equal(t, 30*time.Second, c.Statement.DefaultTimeout)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("MEW_RULE_MAX_ACTIONS", "5")
	t.Setenv("MEW_RULE_MAX_CHAIN_DEPTH", "7")
	t.Setenv("MEW_MATCH_MAX_DEPTH", "3")
	t.Setenv("MEW_PLAN_CACHE_SIZE", "42")
	t.Setenv("MEW_STATEMENT_TIMEOUT", "2s")
	t.Setenv("MEW_LOG_LEVEL", "debug")

	c := LoadFromEnv()
	require.NoError(t, c.Validate())
	assert.Equal(t, 5, c.Rules.MaxFiredActions)
	assert.Equal(t, 7, c.Rules.MaxChainDepth)
	assert.Equal(t, 3, c.Match.DefaultTransitiveDepth)
	assert.Equal(t, 42, c.Cache.PlanCacheSize)
	assert.Equal(t, 2*time.Second, c.Statement.DefaultTimeout)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadFromEnvIgnoresUnparsable(t *testing.T) {
	t.Setenv("MEW_RULE_MAX_ACTIONS", "not-a-number")
	c := LoadFromEnv()
	assert.Equal(t, 10_000, c.Rules.MaxFiredActions)
}

func TestValidateRejectsNonPositive(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Rules.MaxFiredActions = 0 },
		func(c *Config) { c.Rules.MaxChainDepth = -1 },
		func(c *Config) { c.Match.DefaultTransitiveDepth = 0 },
		func(c *Config) { c.Match.CollectLimit = 0 },
		func(c *Config) { c.Cache.PlanCacheSize = 0 },
		func(c *Config) { c.Statement.DefaultTimeout = 0 },
	}
	for _, mutate := range cases {
		c := Default()
		mutate(c)
		assert.Error(t, c.Validate())
	}
}

func TestStatementTimeoutAcceptsBareSeconds(t *testing.T) {
	require.NoError(t, os.Setenv("MEW_STATEMENT_TIMEOUT", "15"))
	defer os.Unsetenv("MEW_STATEMENT_TIMEOUT")
	c := LoadFromEnv()
	assert.Equal(t, 15*time.Second, c.Statement.DefaultTimeout)
}
