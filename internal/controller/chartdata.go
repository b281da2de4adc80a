package controller

import (
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"
)

// NormalizeChartData converts a chart response into sink-ready series.
// Points whose timestamps could not be coerced to UTC epoch seconds are
// logged and dropped, never forwarded.
func NormalizeChartData(log *logger.Logger, resp *dto.ChartDataResponse) ([]Candle, map[string][]Point, []Marker) {
	candles := make([]Candle, 0, len(resp.OHLCData))
	for _, bar := range resp.OHLCData {
		if !bar.Time.Valid {
			log.Warn("dropping OHLC bar with unusable timestamp")
			continue
		}
		candles = append(candles, Candle{
			Time:   bar.Time.Unix,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}

	indicators := make(map[string][]Point, len(resp.IndicatorData))
	for name, points := range resp.IndicatorData {
		series := make([]Point, 0, len(points))
		for _, pt := range points {
			if !pt.Time.Valid {
				log.Warn("dropping indicator point with unusable timestamp",
					logger.StringField("series", name),
				)
				continue
			}
			series = append(series, Point{Time: pt.Time.Unix, Value: pt.Value})
		}
		indicators[name] = series
	}

	markers := make([]Marker, 0, len(resp.TradeMarkers))
	for _, m := range resp.TradeMarkers {
		if !m.Time.Valid {
			log.Warn("dropping trade marker with unusable timestamp")
			continue
		}
		markers = append(markers, Marker{
			Time:     m.Time.Unix,
			AboveBar: m.Position == "aboveBar",
			Shape:    m.Shape,
			Color:    m.Color,
			Text:     m.Text,
		})
	}

	return candles, indicators, markers
}
