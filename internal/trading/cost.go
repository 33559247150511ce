// Package trading holds the per-fill cost model used when sizing the
// short list against a cash budget.
package trading

import "github.com/luqian/astock-screener/pkg/config"

// CostModel prices the frictions of one fill: brokerage commission,
// stamp tax (sell side only), and slippage.
type CostModel struct {
	commissionRate float64
	taxRate        float64
	slippage       float64
}

// NewCostModel builds a CostModel from config.
func NewCostModel(cfg config.TradingConfig) *CostModel {
	return &CostModel{
		commissionRate: cfg.CommissionRate,
		taxRate:        cfg.TaxRate,
		slippage:       cfg.Slippage,
	}
}

// TradeCost returns the total transaction cost of a fill. Stamp tax
// applies only to sells.
func (m *CostModel) TradeCost(price float64, shares int, isBuy bool) float64 {
	value := price * float64(shares)
	cost := value*m.commissionRate + value*m.slippage
	if !isBuy {
		cost += value * m.taxRate
	}
	return cost
}
