package costs

import (
	"sync"

	"mercator-hq/themis/pkg/config"
)

// Calculator prices token usage using flat per-model per-1K-token pricing
// from configuration. It is thread-safe and supports pricing reloads.
type Calculator struct {
	mu  sync.RWMutex
	cfg config.CostsConfig
}

// NewCalculator creates a cost calculator with the given pricing
// configuration.
func NewCalculator(cfg config.CostsConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Cost returns the USD cost for the given token count and model. Unknown
// models fall back to the configured default rate.
func (c *Calculator) Cost(tokens int, model string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rate := c.cfg.DefaultCostPer1KTokens
	if pricing, ok := c.cfg.Models[model]; ok {
		rate = pricing.CostPer1KTokens
	}

	return float64(tokens) / 1000 * rate
}

// Reload replaces the pricing configuration.
func (c *Calculator) Reload(cfg config.CostsConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}
