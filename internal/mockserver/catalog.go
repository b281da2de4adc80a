package mockserver

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/common"
	"trading-platform-client/pkg/utils"
)

// Canned catalog served by the development backend. Shapes mirror what the
// production service exposes.
func strategyCatalog() []dto.StrategyDescriptor {
	return []dto.StrategyDescriptor{
		{
			ID:   "ema_crossover",
			Name: "EMA Crossover",
			Parameters: []dto.ParameterDescriptor{
				{Name: "fast_ema_period", Type: dto.ParamInteger, Default: 10.0, MinValue: utils.ToPointer(2.0), MaxValue: utils.ToPointer(50.0), Step: utils.ToPointer(1.0)},
				{Name: "slow_ema_period", Type: dto.ParamInteger, Default: 30.0, MinValue: utils.ToPointer(5.0), MaxValue: utils.ToPointer(100.0), Step: utils.ToPointer(1.0)},
			},
		},
		{
			ID:   "rsi_reversal",
			Name: "RSI Reversal",
			Parameters: []dto.ParameterDescriptor{
				{Name: "rsi_period", Type: dto.ParamInteger, Default: 14.0, MinValue: utils.ToPointer(2.0), MaxValue: utils.ToPointer(50.0), Step: utils.ToPointer(1.0)},
				{Name: "oversold_level", Type: dto.ParamFloat, Default: 30.0, MinValue: utils.ToPointer(10.0), MaxValue: utils.ToPointer(45.0), Step: utils.ToPointer(1.0)},
				{Name: "stop_loss_pct", Type: dto.ParamFloat, Default: 0.05, Step: utils.ToPointer(0.01)},
				{Name: "use_trailing_stop", Type: dto.ParamBoolean, Default: false},
			},
		},
	}
}

func symbolCatalog(exchange string) []dto.SymbolEntry {
	known := false
	for _, e := range common.GetExchangeList() {
		if exchange == e {
			known = true
		}
	}
	if !known {
		return nil
	}
	return []dto.SymbolEntry{
		{Token: "2885", TradingSymbol: "RELIANCE-EQ", Instrument: "EQ"},
		{Token: "1594", TradingSymbol: "INFY-EQ", Instrument: "EQ"},
		{Token: "99926000", TradingSymbol: "NIFTY 50", Instrument: "INDEX"},
		{Token: "53181", TradingSymbol: "NIFTY-FUT", Instrument: "FUTIDX"},
		{Token: "409", TradingSymbol: "SPECIAL-MF", Instrument: "MF"},
	}
}

// barCount derives how many bars the requested window holds for a timeframe,
// capped so synthetic responses stay small.
func barCount(start, end time.Time, timeframe string) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}

	var bars int
	switch timeframe {
	case "D":
		// Rough weekday count.
		bars = days * 5 / 7
	case "1min":
		bars = days * 375
	case "3min":
		bars = days * 125
	case "5min":
		bars = days * 75
	case "15min":
		bars = days * 25
	case "30min":
		bars = days * 13
	case "60min":
		bars = days * 7
	default:
		bars = days
	}

	if bars > 2000 {
		bars = 2000
	}
	if bars < 1 {
		bars = 1
	}
	return bars
}

func seedFor(token, timeframe string) int64 {
	h := fnv.New64a()
	h.Write([]byte(token))
	h.Write([]byte(timeframe))
	return int64(h.Sum64())
}

// syntheticOHLC walks a deterministic random path so the same request always
// yields the same series.
func syntheticOHLC(token, timeframe string, start, end time.Time) []dto.OHLCBar {
	n := barCount(start, end, timeframe)
	rng := rand.New(rand.NewSource(seedFor(token, timeframe)))

	interval := end.Sub(start) / time.Duration(n)
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	price := 100 + rng.Float64()*400
	bars := make([]dto.OHLCBar, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * interval).UTC().Unix()
		drift := (rng.Float64() - 0.48) * price * 0.02
		open := price
		close := math.Max(1, price+drift)
		high := math.Max(open, close) * (1 + rng.Float64()*0.01)
		low := math.Min(open, close) * (1 - rng.Float64()*0.01)
		bars = append(bars, dto.OHLCBar{
			Time:   dto.FlexTime{Unix: ts, Valid: true},
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: float64(1000 + rng.Intn(100000)),
		})
		price = close
	}
	return bars
}

// rollingMean is the stand-in indicator overlay for strategy requests.
func rollingMean(bars []dto.OHLCBar, window int) []dto.IndicatorPoint {
	if window < 1 {
		window = 1
	}
	points := make([]dto.IndicatorPoint, 0, len(bars))
	sum := 0.0
	for i, bar := range bars {
		sum += bar.Close
		if i >= window {
			sum -= bars[i-window].Close
		}
		span := window
		if i+1 < window {
			span = i + 1
		}
		points = append(points, dto.IndicatorPoint{
			Time:  bar.Time,
			Value: sum / float64(span),
		})
	}
	return points
}

func syntheticMarkers(bars []dto.OHLCBar) []dto.TradeMarker {
	var markers []dto.TradeMarker
	for i, bar := range bars {
		if i == 0 || i%40 != 0 {
			continue
		}
		position, shape, color, text := "belowBar", "arrowUp", "green", "BUY"
		if (i/40)%2 == 0 {
			position, shape, color, text = "aboveBar", "arrowDown", "red", "SELL"
		}
		markers = append(markers, dto.TradeMarker{
			Time:     bar.Time,
			Position: position,
			Shape:    shape,
			Color:    color,
			Text:     text,
		})
	}
	return markers
}
