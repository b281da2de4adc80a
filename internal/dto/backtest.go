package dto

type BacktestRunRequest struct {
	StrategyID     string                 `json:"strategy_id" validate:"required"`
	Exchange       string                 `json:"exchange" validate:"required"`
	Token          string                 `json:"token" validate:"required"`
	StartDate      string                 `json:"start_date" validate:"required"`
	EndDate        string                 `json:"end_date" validate:"required"`
	Timeframe      string                 `json:"timeframe" validate:"required"`
	InitialCapital float64                `json:"initial_capital" validate:"gt=0"`
	Parameters     map[string]interface{} `json:"parameters"`
}

type BacktestTrade struct {
	EntryTime  FlexTime `json:"entry_time"`
	ExitTime   FlexTime `json:"exit_time"`
	Direction  string   `json:"direction"`
	EntryPrice float64  `json:"entry_price"`
	ExitPrice  float64  `json:"exit_price"`
	Quantity   float64  `json:"quantity"`
	PnL        float64  `json:"pnl"`
	ExitReason string   `json:"exit_reason,omitempty"`
}

type SeriesPoint struct {
	Time  FlexTime `json:"time"`
	Value float64  `json:"value"`
}

type BacktestRunResponse struct {
	PerformanceMetrics map[string]float64 `json:"performance_metrics,omitempty"`
	Trades             []BacktestTrade    `json:"trades,omitempty"`
	EquityCurve        []SeriesPoint      `json:"equity_curve,omitempty"`
	DrawdownCurve      []SeriesPoint      `json:"drawdown_curve,omitempty"`
	SummaryMessage     string             `json:"summary_message,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
}
