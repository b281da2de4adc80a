package request

import (
	"fmt"
	"math"

	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
)

// Builder assembles validated wire requests from the current RunContext and
// form readings. All validation happens before dispatch; a failure names the
// offending parameter and aborts the request.
type Builder struct {
	log      *logger.Logger
	validate *goValidator.Validate
}

func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{
		log:      log,
		validate: goValidator.New(),
	}
}

// NormalizeTimeframe rewrites the UI timeframe token to its wire form.
func NormalizeTimeframe(timeframe string) string {
	if timeframe == "day" {
		return "D"
	}
	return timeframe
}

// ResolveParams merges form readings with the last-known context values,
// substituting descriptor defaults for anything still unspecified.
func (b *Builder) ResolveParams(descriptors []dto.ParameterDescriptor, values schema.Values, last map[string]interface{}) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(descriptors))

	for _, p := range descriptors {
		if v, ok := values[p.Name]; ok && v.Specified {
			resolved[p.Name] = v.Data
			continue
		}
		if lastVal, ok := last[p.Name]; ok && lastVal != nil {
			coerced, err := schema.CoerceAny(lastVal, p.Type)
			if err != nil {
				return nil, &schema.ValidationError{Parameter: p.Name, Reason: err.Error()}
			}
			resolved[p.Name] = coerced
			continue
		}
		if p.Default == nil {
			continue
		}
		coerced, err := schema.CoerceAny(p.Default, p.Type)
		if err != nil {
			return nil, &schema.ValidationError{Parameter: p.Name, Reason: err.Error()}
		}
		resolved[p.Name] = coerced
	}

	return resolved, nil
}

// ChartRequest builds a chart-data request. A context without a strategy
// yields a raw OHLC request: nil strategy id and empty params, never one
// without the other.
func (b *Builder) ChartRequest(rc *runctx.RunContext) (*dto.ChartDataRequest, error) {
	req := &dto.ChartDataRequest{
		Exchange:       rc.Exchange,
		Token:          rc.Token,
		Timeframe:      NormalizeTimeframe(rc.Timeframe),
		StrategyParams: map[string]interface{}{},
		StartDate:      utils.FormatDate(rc.StartDate),
		EndDate:        utils.FormatDate(rc.EndDate),
	}

	if rc.StrategyID != "" {
		id := rc.StrategyID
		req.StrategyID = &id
		for k, v := range rc.StrategyParams {
			req.StrategyParams[k] = v
		}
	}

	if err := b.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("chart request invalid: %w", err)
	}
	return req, nil
}

// BacktestRequest builds a backtest run request; a strategy is mandatory.
func (b *Builder) BacktestRequest(rc *runctx.RunContext) (*dto.BacktestRunRequest, error) {
	if rc.StrategyID == "" {
		return nil, fmt.Errorf("backtest requires a selected strategy")
	}

	params := make(map[string]interface{}, len(rc.StrategyParams))
	for k, v := range rc.StrategyParams {
		params[k] = v
	}

	req := &dto.BacktestRunRequest{
		StrategyID:     rc.StrategyID,
		Exchange:       rc.Exchange,
		Token:          rc.Token,
		StartDate:      utils.FormatDate(rc.StartDate),
		EndDate:        utils.FormatDate(rc.EndDate),
		Timeframe:      NormalizeTimeframe(rc.Timeframe),
		InitialCapital: rc.InitialCapital,
		Parameters:     params,
	}

	if err := b.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("backtest request invalid: %w", err)
	}
	return req, nil
}

// OptimizationRequest builds an optimization start request from range
// readings, one entry per numeric parameter in descriptor order.
func (b *Builder) OptimizationRequest(rc *runctx.RunContext, descriptors []dto.ParameterDescriptor, ranges map[string]schema.RangeTriple) (*dto.OptimizationStartRequest, error) {
	if rc.StrategyID == "" {
		return nil, fmt.Errorf("optimization requires a selected strategy")
	}

	var paramRanges []dto.ParameterRange
	for _, p := range descriptors {
		if !p.Type.IsNumeric() {
			continue
		}
		triple, ok := ranges[p.Name]
		if !ok {
			continue
		}
		if err := validateRange(p, triple); err != nil {
			return nil, err
		}
		paramRanges = append(paramRanges, dto.ParameterRange{
			Name:       p.Name,
			StartValue: triple.Start,
			EndValue:   triple.End,
			Step:       triple.Step,
		})
	}

	req := &dto.OptimizationStartRequest{
		StrategyID:       rc.StrategyID,
		Exchange:         rc.Exchange,
		Token:            rc.Token,
		StartDate:        utils.FormatDate(rc.StartDate),
		EndDate:          utils.FormatDate(rc.EndDate),
		Timeframe:        NormalizeTimeframe(rc.Timeframe),
		InitialCapital:   rc.InitialCapital,
		ParameterRanges:  paramRanges,
		MetricToOptimize: rc.MetricToOptimize,
	}

	if err := b.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("optimization request invalid: %w", err)
	}
	return req, nil
}

func validateRange(p dto.ParameterDescriptor, triple schema.RangeTriple) error {
	for leg, v := range map[string]float64{"start": triple.Start, "end": triple.End, "step": triple.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &schema.ValidationError{Parameter: p.Name, Reason: fmt.Sprintf("%s value is not a finite number", leg)}
		}
		if p.Type == dto.ParamInteger && v != math.Trunc(v) {
			return &schema.ValidationError{Parameter: p.Name, Reason: fmt.Sprintf("%s value %v is not an integer", leg, v)}
		}
	}
	if triple.Step <= 0 {
		return &schema.ValidationError{Parameter: p.Name, Reason: fmt.Sprintf("step must be positive, got %v", triple.Step)}
	}
	if triple.Start > triple.End {
		return &schema.ValidationError{Parameter: p.Name, Reason: fmt.Sprintf("start %v exceeds end %v", triple.Start, triple.End)}
	}
	return nil
}
