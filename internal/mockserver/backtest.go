package mockserver

import (
	"fmt"
	"math"
	"time"

	"trading-platform-client/internal/dto"
)

// syntheticBacktest simulates a long-only strategy over the deterministic
// price series: enter every 40th bar, exit 15 bars later. Parameters shift
// the seed so different tunings return different numbers.
func syntheticBacktest(req dto.BacktestRunRequest, start, end time.Time) *dto.BacktestRunResponse {
	bars := syntheticOHLC(req.Token, req.Timeframe, start, end)
	if len(bars) == 0 {
		return &dto.BacktestRunResponse{ErrorMessage: "no market data for the requested window"}
	}

	bias := paramBias(req.Parameters)

	equity := req.InitialCapital
	peak := equity
	var trades []dto.BacktestTrade
	equityCurve := make([]dto.SeriesPoint, 0, len(bars))
	drawdownCurve := make([]dto.SeriesPoint, 0, len(bars))

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for i, bar := range bars {
		if i > 0 && i%40 == 0 && i+15 < len(bars) {
			entry := bar
			exit := bars[i+15]
			qty := math.Floor(equity * 0.1 / entry.Close)
			if qty < 1 {
				qty = 1
			}
			pnl := (exit.Close - entry.Close + bias) * qty
			equity += pnl
			if pnl > 0 {
				wins++
				grossProfit += pnl
			} else {
				grossLoss -= pnl
			}
			trades = append(trades, dto.BacktestTrade{
				EntryTime:  entry.Time,
				ExitTime:   exit.Time,
				Direction:  "LONG",
				EntryPrice: entry.Close,
				ExitPrice:  exit.Close,
				Quantity:   qty,
				PnL:        pnl,
				ExitReason: "time_exit",
			})
		}

		if equity > peak {
			peak = equity
		}
		drawdown := 0.0
		if peak > 0 {
			drawdown = (equity - peak) / peak * 100
		}
		equityCurve = append(equityCurve, dto.SeriesPoint{Time: bar.Time, Value: equity})
		drawdownCurve = append(drawdownCurve, dto.SeriesPoint{Time: bar.Time, Value: drawdown})
	}

	netPnl := equity - req.InitialCapital
	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100
	}
	profitFactor := 0.0
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}
	maxDrawdown := 0.0
	for _, p := range drawdownCurve {
		if p.Value < maxDrawdown {
			maxDrawdown = p.Value
		}
	}

	return &dto.BacktestRunResponse{
		PerformanceMetrics: map[string]float64{
			"net_pnl":       netPnl,
			"net_pnl_pct":   netPnl / req.InitialCapital * 100,
			"win_rate":      winRate,
			"total_trades":  float64(len(trades)),
			"profit_factor": profitFactor,
			"max_drawdown":  maxDrawdown,
		},
		Trades:        trades,
		EquityCurve:   equityCurve,
		DrawdownCurve: drawdownCurve,
		SummaryMessage: fmt.Sprintf("%s on %s %s: %d trades, net P&L %.2f",
			req.StrategyID, req.Token, req.Timeframe, len(trades), netPnl),
	}
}

// paramBias folds the tuning values into a small per-trade price edge so the
// optimizer has a surface to climb.
func paramBias(params map[string]interface{}) float64 {
	bias := 0.0
	for _, v := range params {
		switch n := v.(type) {
		case float64:
			bias += math.Mod(n, 7) * 0.05
		case int64:
			bias += math.Mod(float64(n), 7) * 0.05
		case bool:
			if n {
				bias += 0.1
			}
		}
	}
	return bias - 1.0
}
