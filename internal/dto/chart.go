package dto

import (
	"encoding/json"
	"strconv"
	"time"
)

// millisecondThreshold separates epoch-second from epoch-millisecond inputs.
// Anything above it cannot be a plausible seconds timestamp.
const millisecondThreshold = 2e12

// FlexTime decodes the time shapes the backend has been observed to emit:
// epoch seconds, epoch milliseconds, or an ISO-8601 string. Unknown shapes
// leave Valid false so callers can drop the point.
type FlexTime struct {
	Unix  int64
	Valid bool
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	t.Valid = false

	// Unmarshalling null into a float64 is a silent no-op, catch it first.
	if string(data) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if num > millisecondThreshold {
			num = num / 1000
		}
		t.Unix = int64(num)
		t.Valid = true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		// Not a number, not a string: the caller logs and drops.
		return nil
	}

	if num, err := strconv.ParseFloat(str, 64); err == nil {
		if num > millisecondThreshold {
			num = num / 1000
		}
		t.Unix = int64(num)
		t.Valid = true
		return nil
	}

	for _, layout := range isoLayouts {
		if parsed, err := time.ParseInLocation(layout, str, time.UTC); err == nil {
			t.Unix = parsed.UTC().Unix()
			t.Valid = true
			return nil
		}
	}
	return nil
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix)
}

type OHLCBar struct {
	Time   FlexTime `json:"time"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume float64  `json:"volume"`
}

type IndicatorPoint struct {
	Time  FlexTime `json:"time"`
	Value float64  `json:"value"`
}

type TradeMarker struct {
	Time     FlexTime `json:"time"`
	Position string   `json:"position"`
	Shape    string   `json:"shape"`
	Color    string   `json:"color"`
	Text     string   `json:"text"`
}

type ChartDataRequest struct {
	Exchange       string                 `json:"exchange" validate:"required"`
	Token          string                 `json:"token" validate:"required"`
	Timeframe      string                 `json:"timeframe" validate:"required"`
	StrategyID     *string                `json:"strategy_id"`
	StrategyParams map[string]interface{} `json:"strategy_params"`
	StartDate      string                 `json:"start_date" validate:"required"`
	EndDate        string                 `json:"end_date" validate:"required"`
}

type ChartDataResponse struct {
	OHLCData        []OHLCBar                   `json:"ohlc_data"`
	IndicatorData   map[string][]IndicatorPoint `json:"indicator_data,omitempty"`
	TradeMarkers    []TradeMarker               `json:"trade_markers,omitempty"`
	ChartHeaderInfo map[string]interface{}      `json:"chart_header_info,omitempty"`
	Message         string                      `json:"message,omitempty"`
}
