package schema

import (
	"testing"

	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emaDescriptors() []dto.ParameterDescriptor {
	return []dto.ParameterDescriptor{
		{Name: "fast_ema_period", Type: dto.ParamInteger, Default: 10.0, MinValue: utils.ToPointer(2.0), MaxValue: utils.ToPointer(50.0), Step: utils.ToPointer(1.0)},
		{Name: "slow_ema_period", Type: dto.ParamInteger, Default: 30.0, MinValue: utils.ToPointer(5.0), MaxValue: utils.ToPointer(100.0), Step: utils.ToPointer(1.0)},
		{Name: "use_trailing_stop", Type: dto.ParamBoolean, Default: false},
	}
}

func TestRenderSingleSeedsDefaults(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()

	engine.Render(surface, emaDescriptors(), nil, ModeSingle)

	fast, ok := surface.Get(InputID("fast_ema_period"))
	require.True(t, ok)
	assert.Equal(t, "10", fast.Value)

	slow, ok := surface.Get(InputID("slow_ema_period"))
	require.True(t, ok)
	assert.Equal(t, "30", slow.Value)

	trailing, ok := surface.Get(InputID("use_trailing_stop"))
	require.True(t, ok)
	assert.Equal(t, "false", trailing.Value)

	assert.Equal(t, []string{
		"param-fast_ema_period",
		"param-slow_ema_period",
		"param-use_trailing_stop",
	}, surface.IDs())
}

func TestRenderSinglePrefersCurrentValues(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()

	current := map[string]interface{}{"fast_ema_period": int64(7)}
	engine.Render(surface, emaDescriptors(), current, ModeSingle)

	fast, ok := surface.Get(InputID("fast_ema_period"))
	require.True(t, ok)
	assert.Equal(t, "7", fast.Value)
}

func TestReadRoundTrip(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()
	descriptors := emaDescriptors()

	engine.Render(surface, descriptors, nil, ModeSingle)
	values, err := engine.Read(surface, descriptors)
	require.NoError(t, err)

	assert.Equal(t, Value{Data: int64(10), Specified: true}, values["fast_ema_period"])
	assert.Equal(t, Value{Data: int64(30), Specified: true}, values["slow_ema_period"])
	assert.Equal(t, Value{Data: false, Specified: true}, values["use_trailing_stop"])
}

func TestReadEmptyAndMissingAreUnspecified(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()
	descriptors := emaDescriptors()

	engine.Render(surface, descriptors, nil, ModeSingle)
	require.NoError(t, surface.SetValue(InputID("fast_ema_period"), ""))
	surface.Remove(InputID("slow_ema_period"))

	values, err := engine.Read(surface, descriptors)
	require.NoError(t, err)

	assert.False(t, values["fast_ema_period"].Specified)
	assert.False(t, values["slow_ema_period"].Specified)
	assert.True(t, values["use_trailing_stop"].Specified)
}

func TestReadRejectsBadText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		param string
	}{
		{name: "non numeric integer", text: "abc", param: "fast_ema_period"},
		{name: "float into integer", text: "10.5", param: "fast_ema_period"},
		{name: "garbage boolean", text: "maybe", param: "use_trailing_stop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(logger.NewNop())
			surface := NewSurface()
			descriptors := emaDescriptors()

			engine.Render(surface, descriptors, nil, ModeSingle)
			require.NoError(t, surface.SetValue(InputID(tt.param), tt.text))

			_, err := engine.Read(surface, descriptors)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.param, verr.Parameter)
		})
	}
}

func TestRenderRangeTriples(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()
	descriptors := emaDescriptors()

	engine.Render(surface, descriptors, nil, ModeRange)

	min, ok := surface.Get(RangeInputID("fast_ema_period", KindMin))
	require.True(t, ok)
	assert.Equal(t, "2", min.Value)

	max, ok := surface.Get(RangeInputID("fast_ema_period", KindMax))
	require.True(t, ok)
	assert.Equal(t, "50", max.Value)

	step, ok := surface.Get(RangeInputID("fast_ema_period", KindStep))
	require.True(t, ok)
	assert.Equal(t, "1", step.Value)

	// Booleans never get range triples.
	_, ok = surface.Get(RangeInputID("use_trailing_stop", KindMin))
	assert.False(t, ok)
	_, ok = surface.Get(InputID("use_trailing_stop"))
	assert.True(t, ok)
}

func TestReadRangesFallsBackToSeeds(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()
	descriptors := emaDescriptors()

	engine.Render(surface, descriptors, nil, ModeRange)
	require.NoError(t, surface.SetValue(RangeInputID("fast_ema_period", KindMax), ""))
	surface.Remove(RangeInputID("slow_ema_period", KindStep))

	ranges, err := engine.ReadRanges(surface, descriptors)
	require.NoError(t, err)

	assert.Equal(t, RangeTriple{Start: 2, End: 50, Step: 1}, ranges["fast_ema_period"])
	assert.Equal(t, RangeTriple{Start: 5, End: 100, Step: 1}, ranges["slow_ema_period"])
}

func TestReadRangesRejectsBadLeg(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	surface := NewSurface()
	descriptors := emaDescriptors()

	engine.Render(surface, descriptors, nil, ModeRange)
	require.NoError(t, surface.SetValue(RangeInputID("slow_ema_period", KindMin), "five"))

	_, err := engine.ReadRanges(surface, descriptors)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slow_ema_period", verr.Parameter)
}
