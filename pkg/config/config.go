// Package config handles kernel configuration via environment variables.
//
// The kernel itself never reads a config file or a flag parser — those are
// surface-protocol concerns out of scope for this repository (spec.md §1).
// What it does own is a handful of numeric limits that bound otherwise
// unbounded kernel work: rule fixpoint iteration, transitive pattern depth,
// and plan cache size. Those are loaded from environment variables with
// LoadFromEnv and validated with Validate, the same two-step contract the
// teacher repository uses for its own Config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all kernel configuration loaded from environment variables.
type Config struct {
	// Rules bounds the fixpoint rule scheduler (spec.md §4.7).
	Rules RuleLimits
	// Match bounds pattern matching (spec.md §4.4).
	Match MatchLimits
	// Cache controls the plan cache (spec.md §4.2).
	Cache CacheConfig
	// Statement is the default deadline applied to a statement lacking an
	// explicit one (spec.md §5 "Cancellation and timeouts").
	Statement StatementConfig
	// Logging controls klog's verbosity.
	Logging LoggingConfig
}

// RuleLimits mirrors spec.md §4.7's limits table.
type RuleLimits struct {
	// MaxFiredActions is the total number of actions a transaction's rule
	// fixpoint may execute before aborting. Default 10_000.
	MaxFiredActions int
	// MaxChainDepth bounds the number of fixpoint rounds the rule engine
	// runs (each round re-evaluates every triggered auto rule) before
	// aborting as a cycle. Rounds are counted for the whole rule set, not
	// per (rule, binding) chain. Default 100.
	MaxChainDepth int
}

// MatchLimits mirrors spec.md §4.4's transitive-pattern defaults.
type MatchLimits struct {
	// DefaultTransitiveDepth is the depth cap applied to E+/E* patterns
	// without an explicit [depth: lo..hi]. Default 100.
	DefaultTransitiveDepth int
	// CollectLimit is the default cap on COLLECT() accumulation absent an
	// explicit [limit: none] (spec.md §9 Open Question 4). Default 10_000.
	CollectLimit int
}

// CacheConfig controls the Registry's statement-fingerprint plan cache.
type CacheConfig struct {
	// PlanCacheSize is the maximum number of cached plans (LRU eviction).
	PlanCacheSize int
}

// StatementConfig holds the default statement deadline.
type StatementConfig struct {
	DefaultTimeout time.Duration
}

// LoggingConfig controls klog.
type LoggingConfig struct {
	Level string
}

// Default returns the configuration the kernel uses absent any environment
// overrides — the same defaults named throughout spec.md.
func Default() *Config {
	return &Config{
		Rules: RuleLimits{
			MaxFiredActions: 10_000,
			MaxChainDepth:   100,
		},
		Match: MatchLimits{
			DefaultTransitiveDepth: 100,
			CollectLimit:           10_000,
		},
		Cache: CacheConfig{
			PlanCacheSize: 1000,
		},
		Statement: StatementConfig{
			DefaultTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables, falling back
// to Default() for anything unset or unparsable.
func LoadFromEnv() *Config {
	c := Default()

	c.Rules.MaxFiredActions = getEnvInt("MEW_RULE_MAX_ACTIONS", c.Rules.MaxFiredActions)
	c.Rules.MaxChainDepth = getEnvInt("MEW_RULE_MAX_CHAIN_DEPTH", c.Rules.MaxChainDepth)

	c.Match.DefaultTransitiveDepth = getEnvInt("MEW_MATCH_MAX_DEPTH", c.Match.DefaultTransitiveDepth)
	c.Match.CollectLimit = getEnvInt("MEW_MATCH_COLLECT_LIMIT", c.Match.CollectLimit)

	c.Cache.PlanCacheSize = getEnvInt("MEW_PLAN_CACHE_SIZE", c.Cache.PlanCacheSize)

	c.Statement.DefaultTimeout = getEnvDuration("MEW_STATEMENT_TIMEOUT", c.Statement.DefaultTimeout)

	c.Logging.Level = getEnv("MEW_LOG_LEVEL", c.Logging.Level)

	return c
}

// Validate rejects a configuration whose limits can't possibly be honored.
func (c *Config) Validate() error {
	if c.Rules.MaxFiredActions <= 0 {
		return fmt.Errorf("config: Rules.MaxFiredActions must be positive, got %d", c.Rules.MaxFiredActions)
	}
	if c.Rules.MaxChainDepth <= 0 {
		return fmt.Errorf("config: Rules.MaxChainDepth must be positive, got %d", c.Rules.MaxChainDepth)
	}
	if c.Match.DefaultTransitiveDepth <= 0 {
		return fmt.Errorf("config: Match.DefaultTransitiveDepth must be positive, got %d", c.Match.DefaultTransitiveDepth)
	}
	if c.Match.CollectLimit <= 0 {
		return fmt.Errorf("config: Match.CollectLimit must be positive, got %d", c.Match.CollectLimit)
	}
	if c.Cache.PlanCacheSize <= 0 {
		return fmt.Errorf("config: Cache.PlanCacheSize must be positive, got %d", c.Cache.PlanCacheSize)
	}
	if c.Statement.DefaultTimeout <= 0 {
		return fmt.Errorf("config: Statement.DefaultTimeout must be positive, got %s", c.Statement.DefaultTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

// String renders the configuration for diagnostics.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rules(maxActions=%d maxChainDepth=%d) ", c.Rules.MaxFiredActions, c.Rules.MaxChainDepth)
	fmt.Fprintf(&b, "match(maxDepth=%d collectLimit=%d) ", c.Match.DefaultTransitiveDepth, c.Match.CollectLimit)
	fmt.Fprintf(&b, "cache(planSize=%d) ", c.Cache.PlanCacheSize)
	fmt.Fprintf(&b, "statement(timeout=%s) ", c.Statement.DefaultTimeout)
	fmt.Fprintf(&b, "logging(level=%s)", c.Logging.Level)
	return b.String()
}
