package schema

import "fmt"

type Mode string

const (
	ModeSingle Mode = "single"
	ModeRange  Mode = "range"
)

type InputKind string

const (
	KindValue InputKind = "value"
	KindMin   InputKind = "min"
	KindMax   InputKind = "max"
	KindStep  InputKind = "step"
)

// Input is one rendered form control. Value is textual, the way a DOM input
// holds it; coercion back to the declared type happens on Read.
type Input struct {
	ID        string
	Parameter string
	Kind      InputKind
	Type      string
	Value     string
	MinHint   *float64
	MaxHint   *float64
	StepHint  *float64
}

// Surface is an ordered store of rendered inputs, the stand-in for the form
// container a browser page would own. A page controller owns one per form.
type Surface struct {
	inputs map[string]*Input
	order  []string
}

func NewSurface() *Surface {
	return &Surface{inputs: make(map[string]*Input)}
}

// InputID returns the deterministic id of a single-mode input.
func InputID(param string) string {
	return "param-" + param
}

// RangeInputID returns the deterministic id of one leg of a range triple.
func RangeInputID(param string, kind InputKind) string {
	return fmt.Sprintf("param-%s-%s", param, kind)
}

func (s *Surface) Put(in Input) {
	if _, exists := s.inputs[in.ID]; !exists {
		s.order = append(s.order, in.ID)
	}
	copied := in
	s.inputs[in.ID] = &copied
}

func (s *Surface) Get(id string) (*Input, bool) {
	in, ok := s.inputs[id]
	return in, ok
}

// SetValue updates the text of an existing input, as a user edit would.
func (s *Surface) SetValue(id, value string) error {
	in, ok := s.inputs[id]
	if !ok {
		return fmt.Errorf("no input with id %q", id)
	}
	in.Value = value
	return nil
}

// Remove drops an input, used by tests to simulate a missing DOM node.
func (s *Surface) Remove(id string) {
	if _, ok := s.inputs[id]; !ok {
		return
	}
	delete(s.inputs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// IDs returns input ids in render order.
func (s *Surface) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Surface) Clear() {
	s.inputs = make(map[string]*Input)
	s.order = nil
}
