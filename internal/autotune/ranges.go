package autotune

import (
	"math"
	"strings"

	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/schema"
)

var periodHints = []string{"period", "window", "length", "lookback", "fast", "slow"}

func periodLike(name string) bool {
	for _, hint := range periodHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// SynthesizeRanges derives a search range per numeric parameter from the
// descriptor and the observed dataset length. Lookback-style parameters are
// capped relative to the dataset: a "slow" period cannot usefully exceed a
// third of the bars, a "fast" one a fifth, and the dataset cap wins over the
// form hint. Percentage parameters get a fixed [0, 0.5] sweep unless the
// descriptor overrides it.
func SynthesizeRanges(params []dto.ParameterDescriptor, dataLen int) []dto.ParameterRange {
	var out []dto.ParameterRange

	for _, p := range params {
		if !p.Type.IsNumeric() {
			continue
		}

		def, _ := schema.NumericValue(p.Default)
		step := defaultStep(p)
		name := strings.ToLower(p.Name)

		var start, end float64
		switch {
		case strings.HasSuffix(name, "_pct"):
			start, end, step = 0, 0.5, 0.05
			if p.MinValue != nil {
				start = *p.MinValue
			}
			if p.MaxValue != nil {
				end = *p.MaxValue
			}
			if p.Step != nil {
				step = *p.Step
			}
		case strings.Contains(name, "slow"):
			start = lowerBound(p, def, step)
			end = math.Floor(float64(dataLen) / 3)
			if p.MaxValue != nil && *p.MaxValue < end {
				end = *p.MaxValue
			}
		case strings.Contains(name, "fast"):
			start = lowerBound(p, def, step)
			end = math.Floor(float64(dataLen) / 5)
		default:
			start = def - 5*step
			end = def + 10*step
			if p.MinValue != nil && *p.MinValue > start {
				start = *p.MinValue
			}
			if p.MaxValue != nil && *p.MaxValue < end {
				end = *p.MaxValue
			}
			if periodLike(name) {
				start = math.Max(start, 1)
				end = math.Max(end, 1)
			}
		}

		if p.Type == dto.ParamInteger {
			start = math.Floor(start)
			end = math.Floor(end)
			step = math.Ceil(step)
			if step < 1 {
				step = 1
			}
		}
		if end < start {
			end = start
		}

		out = append(out, dto.ParameterRange{
			Name:       p.Name,
			StartValue: start,
			EndValue:   end,
			Step:       step,
		})
	}

	return out
}

func defaultStep(p dto.ParameterDescriptor) float64 {
	if p.Step != nil && *p.Step > 0 {
		return *p.Step
	}
	if p.Type == dto.ParamInteger {
		return 1
	}
	return 0.1
}

func lowerBound(p dto.ParameterDescriptor, def, step float64) float64 {
	if p.MinValue != nil {
		return *p.MinValue
	}
	return math.Max(1, def-5*step)
}
