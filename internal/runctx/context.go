package runctx

import (
	"sync/atomic"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/pkg/utils"
)

// RunContext is the cross-page record of the currently selected run: which
// instrument, which strategy with which parameters, over which window. Each
// page controller owns one; page transitions hand over a Clone, never the
// record itself, so edits on one page cannot leak into another.
//
// The fields are touched only from the UI event loop and carry no lock; the
// generation stamp is atomic so background work can check for staleness.
type RunContext struct {
	Exchange         string
	Token            string
	Symbol           string
	Timeframe        string
	StrategyID       string
	StrategyParams   map[string]interface{}
	StartDate        time.Time
	EndDate          time.Time
	InitialCapital   float64
	MetricToOptimize string

	generation uint64
}

// New builds a RunContext with safe defaults from configuration.
func New(cfg *config.Config) *RunContext {
	start, end := utils.DateWindow(time.Now(), 365)
	return &RunContext{
		Exchange:         cfg.UI.DefaultExchange,
		Timeframe:        cfg.UI.DefaultTimeframe,
		StrategyParams:   make(map[string]interface{}),
		StartDate:        start,
		EndDate:          end,
		InitialCapital:   cfg.UI.DefaultInitialCapital,
		MetricToOptimize: cfg.UI.DefaultMetric,
	}
}

// Clone deep-copies the context for a sibling page. The clone starts its own
// generation history.
func (c *RunContext) Clone() *RunContext {
	copied := *c
	copied.StrategyParams = make(map[string]interface{}, len(c.StrategyParams))
	for k, v := range c.StrategyParams {
		copied.StrategyParams[k] = v
	}
	copied.generation = 0
	return &copied
}

// Generation identifies the current selection state. In-flight work stamps
// the generation it started under and discards its result when the context
// has moved on.
func (c *RunContext) Generation() uint64 {
	return atomic.LoadUint64(&c.generation)
}

func (c *RunContext) bump() {
	atomic.AddUint64(&c.generation, 1)
}

// SetInstrument updates the selected exchange/token/symbol.
func (c *RunContext) SetInstrument(exchange, token, symbol string) {
	c.Exchange = exchange
	c.Token = token
	c.Symbol = symbol
	c.bump()
}

// SetTimeframe updates the bar period.
func (c *RunContext) SetTimeframe(timeframe string) {
	c.Timeframe = timeframe
	c.bump()
}

// SetStrategy switches strategy and resets its parameters.
func (c *RunContext) SetStrategy(strategyID string) {
	c.StrategyID = strategyID
	c.StrategyParams = make(map[string]interface{})
	c.bump()
}

// SetParams replaces the whole parameter map.
func (c *RunContext) SetParams(params map[string]interface{}) {
	c.StrategyParams = make(map[string]interface{}, len(params))
	for k, v := range params {
		c.StrategyParams[k] = v
	}
	c.bump()
}

// SetParam updates a single strategy parameter.
func (c *RunContext) SetParam(name string, value interface{}) {
	if c.StrategyParams == nil {
		c.StrategyParams = make(map[string]interface{})
	}
	c.StrategyParams[name] = value
	c.bump()
}

// SetDateWindow updates the analysis window.
func (c *RunContext) SetDateWindow(start, end time.Time) {
	c.StartDate = start
	c.EndDate = end
	c.bump()
}

// SetInitialCapital updates the starting capital for backtests.
func (c *RunContext) SetInitialCapital(capital float64) {
	c.InitialCapital = capital
	c.bump()
}

// SetMetric updates the optimization target metric.
func (c *RunContext) SetMetric(metric string) {
	c.MetricToOptimize = metric
	c.bump()
}
