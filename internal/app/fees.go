package app

import (
	"delivery/internal/calculator"
	"delivery/internal/config"
)

// Fee converts a configured fee into its calculator form.
func Fee(cfg config.FeeConfig) calculator.Fee {
	return calculator.Fee{Type: calculator.FeeType(cfg.Type), Value: cfg.Value}
}
