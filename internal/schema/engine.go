package schema

import (
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"
)

// Engine renders parameter descriptor lists onto a Surface and reads typed
// values back. Render and Read are total over the descriptor list: a missing
// input is reported as unspecified, never as a fatal error.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Render populates the surface with one input per parameter (single mode) or
// a (min, max, step) triple per numeric parameter (range mode). Booleans and
// strings always render as single inputs. Inputs are seeded from current
// values, falling back to descriptor defaults.
func (e *Engine) Render(s *Surface, params []dto.ParameterDescriptor, current map[string]interface{}, mode Mode) {
	s.Clear()

	for _, p := range params {
		if mode == ModeRange && p.Type.IsNumeric() {
			e.renderRange(s, p)
			continue
		}

		seed := p.Default
		if cur, ok := current[p.Name]; ok && cur != nil {
			seed = cur
		}
		s.Put(Input{
			ID:        InputID(p.Name),
			Parameter: p.Name,
			Kind:      KindValue,
			Type:      string(p.Type),
			Value:     FormatValue(seed),
			MinHint:   p.MinValue,
			MaxHint:   p.MaxValue,
			StepHint:  p.Step,
		})
	}
}

func (e *Engine) renderRange(s *Surface, p dto.ParameterDescriptor) {
	start, end, step := rangeSeeds(p)

	s.Put(Input{
		ID:        RangeInputID(p.Name, KindMin),
		Parameter: p.Name,
		Kind:      KindMin,
		Type:      string(p.Type),
		Value:     FormatValue(start),
		MinHint:   p.MinValue,
		MaxHint:   p.MaxValue,
		StepHint:  p.Step,
	})
	s.Put(Input{
		ID:        RangeInputID(p.Name, KindMax),
		Parameter: p.Name,
		Kind:      KindMax,
		Type:      string(p.Type),
		Value:     FormatValue(end),
		MinHint:   p.MinValue,
		MaxHint:   p.MaxValue,
		StepHint:  p.Step,
	})
	s.Put(Input{
		ID:        RangeInputID(p.Name, KindStep),
		Parameter: p.Name,
		Kind:      KindStep,
		Type:      string(p.Type),
		Value:     FormatValue(step),
		StepHint:  p.Step,
	})
}

// rangeSeeds derives the initial (start, end, step) texts for a numeric
// parameter: explicit bounds when present, the default otherwise.
func rangeSeeds(p dto.ParameterDescriptor) (float64, float64, float64) {
	def, _ := NumericValue(p.Default)
	start, end, step := def, def, 1.0
	if p.MinValue != nil {
		start = *p.MinValue
	}
	if p.MaxValue != nil {
		end = *p.MaxValue
	}
	if p.Step != nil {
		step = *p.Step
	}
	return start, end, step
}

// Read walks the descriptor list and collects single-mode values from the
// surface, coercing text to the declared type. A parse failure is a
// parameter-level validation error.
func (e *Engine) Read(s *Surface, params []dto.ParameterDescriptor) (Values, error) {
	values := make(Values, len(params))

	for _, p := range params {
		in, ok := s.Get(InputID(p.Name))
		if !ok {
			e.log.Warn("form input missing, treating as unspecified",
				logger.StringField("parameter", p.Name),
			)
			values[p.Name] = Value{Specified: false}
			continue
		}
		if in.Value == "" {
			values[p.Name] = Value{Specified: false}
			continue
		}

		coerced, err := Coerce(in.Value, p.Type)
		if err != nil {
			return nil, &ValidationError{Parameter: p.Name, Reason: err.Error()}
		}
		values[p.Name] = Value{Data: coerced, Specified: true}
	}

	return values, nil
}

// ReadRanges collects (start, end, step) triples for the numeric parameters.
// Empty or missing legs fall back to the descriptor-derived seeds so the
// reading stays total; unparseable legs are validation errors.
func (e *Engine) ReadRanges(s *Surface, params []dto.ParameterDescriptor) (map[string]RangeTriple, error) {
	ranges := make(map[string]RangeTriple)

	for _, p := range params {
		if !p.Type.IsNumeric() {
			continue
		}
		seedStart, seedEnd, seedStep := rangeSeeds(p)

		start, err := e.readRangeLeg(s, p, KindMin, seedStart)
		if err != nil {
			return nil, err
		}
		end, err := e.readRangeLeg(s, p, KindMax, seedEnd)
		if err != nil {
			return nil, err
		}
		step, err := e.readRangeLeg(s, p, KindStep, seedStep)
		if err != nil {
			return nil, err
		}

		ranges[p.Name] = RangeTriple{Start: start, End: end, Step: step}
	}

	return ranges, nil
}

func (e *Engine) readRangeLeg(s *Surface, p dto.ParameterDescriptor, kind InputKind, seed float64) (float64, error) {
	in, ok := s.Get(RangeInputID(p.Name, kind))
	if !ok {
		e.log.Warn("range input missing, using descriptor seed",
			logger.StringField("parameter", p.Name),
			logger.StringField("leg", string(kind)),
		)
		return seed, nil
	}
	if in.Value == "" {
		return seed, nil
	}

	coerced, err := Coerce(in.Value, dto.ParamFloat)
	if err != nil {
		return 0, &ValidationError{Parameter: p.Name, Reason: err.Error()}
	}
	return coerced.(float64), nil
}
