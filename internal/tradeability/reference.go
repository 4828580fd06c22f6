package tradeability

import (
	"context"
	"strings"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
	"github.com/wonny/gapscan/pkg/redis"
)

// TypeChecker excludes instruments by provider reference data
// (OTC market, inactive listings, excluded security types).
// Lookup failures pass the ticker.
type TypeChecker struct {
	ref      contracts.ReferenceProvider
	excluded map[string]struct{}
	cache    *redis.Cache
	enabled  bool
	logger   *logger.Logger
}

// NewTypeChecker creates a checker; cache may be nil
func NewTypeChecker(cfg strategyconfig.TypeCheck, ref contracts.ReferenceProvider, cache *redis.Cache, log *logger.Logger) *TypeChecker {
	excluded := make(map[string]struct{}, len(cfg.ExcludedTypes))
	for _, t := range cfg.ExcludedTypes {
		excluded[strings.ToUpper(t)] = struct{}{}
	}
	return &TypeChecker{
		ref:      ref,
		excluded: excluded,
		cache:    cache,
		enabled:  cfg.Enabled && ref != nil,
		logger:   log,
	}
}

// Check returns (ok, reason)
func (c *TypeChecker) Check(ctx context.Context, ticker string) (bool, string) {
	if !c.enabled {
		return true, ""
	}

	details, err := c.lookup(ctx, ticker)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Debug("Ticker details unavailable, passing")
		return true, ""
	}

	switch {
	case strings.EqualFold(details.Market, "otc"):
		return false, "type_otc"
	case !details.Active:
		return false, "type_inactive"
	}
	if _, ok := c.excluded[strings.ToUpper(details.Type)]; ok {
		return false, "type_" + strings.ToLower(details.Type)
	}
	return true, ""
}

func (c *TypeChecker) lookup(ctx context.Context, ticker string) (*contracts.TickerDetails, error) {
	key := redis.TickerDetailsKey(ticker)
	if c.cache != nil {
		var d contracts.TickerDetails
		if found, err := c.cache.Get(ctx, key, &d); err == nil && found {
			return &d, nil
		}
	}

	d, err := c.ref.TickerDetails(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, key, d, redis.TTLLong)
	}
	return d, nil
}
