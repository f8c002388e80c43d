// Package exchange creates exchange adapters from configuration
package exchange

import (
	"fmt"

	"gridbot/internal/config"
	"gridbot/internal/core"
	"gridbot/internal/exchange/aster"
	"gridbot/internal/exchange/binance"
	"gridbot/internal/mock"
)

// New creates the exchange adapter named in the configuration
func New(cfg *config.Config, logger core.ILogger) (core.IExchange, error) {
	switch cfg.Exchange.Name {
	case "aster":
		return aster.New(&cfg.Exchange, &cfg.Grid, logger), nil
	case "binance":
		return binance.New(&cfg.Exchange, &cfg.Grid, logger), nil
	case "mock":
		return mock.NewMockExchange("mock"), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", cfg.Exchange.Name)
	}
}
