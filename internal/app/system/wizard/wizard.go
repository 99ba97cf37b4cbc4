// Package wizard implements the step machine behind the portal's multi-step
// screens: the data-label wizard, the OBE accordion and the examination
// workflow.
//
// A Flow is an immutable set of named steps plus a transition table. A Cursor
// walks a Flow and always sits on exactly one step, which is the one the
// screen renders. Moves that the table does not allow fail with
// ErrInvalidTransition and leave the cursor where it was.
package wizard

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Step names one state of a flow.
type Step string

// Sentinel errors. Wrapped errors carry the step names involved.
var (
	ErrUnknownStep       = errors.New("wizard: unknown step")
	ErrInvalidTransition = errors.New("wizard: invalid transition")
	ErrEmptyFlow         = errors.New("wizard: flow has no steps")
)

// Flow is a step graph. Build one with New, Linear or Accordion.
type Flow struct {
	steps []Step
	index map[Step]int
	edges map[Step][]Step
	start Step
}

// New builds a flow over steps (in display order) starting at start.
// transitions maps a step to the steps reachable from it; steps with no
// entry are terminal.
func New(start Step, steps []Step, transitions map[Step][]Step) (*Flow, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyFlow
	}
	f := &Flow{
		steps: slices.Clone(steps),
		index: make(map[Step]int, len(steps)),
		edges: make(map[Step][]Step, len(transitions)),
		start: start,
	}
	for i, s := range steps {
		if _, dup := f.index[s]; dup {
			return nil, fmt.Errorf("wizard: duplicate step %q", s)
		}
		f.index[s] = i
	}
	if !f.Has(start) {
		return nil, fmt.Errorf("%w: start %q", ErrUnknownStep, start)
	}
	for from, tos := range transitions {
		if !f.Has(from) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStep, from)
		}
		for _, to := range tos {
			if !f.Has(to) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownStep, to)
			}
			if !slices.Contains(f.edges[from], to) {
				f.edges[from] = append(f.edges[from], to)
			}
		}
	}
	return f, nil
}

// Linear builds a flow where each step may move to its neighbours only.
func Linear(steps ...Step) (*Flow, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyFlow
	}
	t := make(map[Step][]Step, len(steps))
	for i, s := range steps {
		if i > 0 {
			t[s] = append(t[s], steps[i-1])
		}
		if i < len(steps)-1 {
			t[s] = append(t[s], steps[i+1])
		}
	}
	return New(steps[0], steps, t)
}

// Accordion builds a flow where any step may open any other.
func Accordion(steps ...Step) (*Flow, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyFlow
	}
	t := make(map[Step][]Step, len(steps))
	for _, from := range steps {
		for _, to := range steps {
			if from != to {
				t[from] = append(t[from], to)
			}
		}
	}
	return New(steps[0], steps, t)
}

// MustLinear is Linear for package-level flow definitions.
func MustLinear(steps ...Step) *Flow {
	f, err := Linear(steps...)
	if err != nil {
		panic(err)
	}
	return f
}

// MustAccordion is Accordion for package-level flow definitions.
func MustAccordion(steps ...Step) *Flow {
	f, err := Accordion(steps...)
	if err != nil {
		panic(err)
	}
	return f
}

// Must panics if err is non-nil.
func Must(f *Flow, err error) *Flow {
	if err != nil {
		panic(err)
	}
	return f
}

// Start returns the initial step.
func (f *Flow) Start() Step { return f.start }

// Steps returns the steps in display order.
func (f *Flow) Steps() []Step { return slices.Clone(f.steps) }

// Has reports whether s belongs to the flow.
func (f *Flow) Has(s Step) bool {
	_, ok := f.index[s]
	return ok
}

// Index returns the display position of s, or -1.
func (f *Flow) Index(s Step) int {
	if i, ok := f.index[s]; ok {
		return i
	}
	return -1
}

// Targets returns the steps reachable from s.
func (f *Flow) Targets(s Step) []Step { return slices.Clone(f.edges[s]) }

// IsTerminal reports whether s has no outgoing transitions.
func (f *Flow) IsTerminal(s Step) bool { return len(f.edges[s]) == 0 }

// CanGo reports whether the table allows from -> to.
func (f *Flow) CanGo(from, to Step) bool {
	return slices.Contains(f.edges[from], to)
}

// Parse converts raw request input to a known step.
func (f *Flow) Parse(raw string) (Step, error) {
	s := Step(strings.TrimSpace(raw))
	if !f.Has(s) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, raw)
	}
	return s, nil
}

// Check validates a single move without a cursor. Stores use it to guard
// status updates.
func (f *Flow) Check(from, to Step) error {
	if !f.Has(from) {
		return fmt.Errorf("%w: %q", ErrUnknownStep, from)
	}
	if !f.Has(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStep, to)
	}
	if !f.CanGo(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Cursor returns a cursor at the start step.
func (f *Flow) Cursor() *Cursor {
	return &Cursor{flow: f, current: f.start}
}

// CursorAt returns a cursor positioned at s, typically restored from a saved
// draft or record status. No transition check is applied.
func (f *Flow) CursorAt(s Step) (*Cursor, error) {
	if !f.Has(s) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
	return &Cursor{flow: f, current: s}, nil
}

// Cursor tracks the visible step of one flow instance.
type Cursor struct {
	flow    *Flow
	current Step
}

// Current returns the visible step.
func (c *Cursor) Current() Step { return c.current }

// Is reports whether s is the visible step. Templates use it to decide which
// panel to render.
func (c *Cursor) Is(s Step) bool { return c.current == s }

// Flow returns the flow the cursor walks.
func (c *Cursor) Flow() *Flow { return c.flow }

// Go moves to step to if the transition table allows it.
func (c *Cursor) Go(to Step) error {
	if err := c.flow.Check(c.current, to); err != nil {
		return err
	}
	c.current = to
	return nil
}

// Next moves to the following step in display order.
func (c *Cursor) Next() error {
	i := c.flow.index[c.current]
	if i+1 >= len(c.flow.steps) {
		return fmt.Errorf("%w: %s is the last step", ErrInvalidTransition, c.current)
	}
	return c.Go(c.flow.steps[i+1])
}

// Back moves to the preceding step in display order.
func (c *Cursor) Back() error {
	i := c.flow.index[c.current]
	if i == 0 {
		return fmt.Errorf("%w: %s is the first step", ErrInvalidTransition, c.current)
	}
	return c.Go(c.flow.steps[i-1])
}

// IsFirst reports whether the cursor is on the first displayed step.
func (c *Cursor) IsFirst() bool { return c.flow.index[c.current] == 0 }

// IsLast reports whether the cursor is on the last displayed step.
func (c *Cursor) IsLast() bool { return c.flow.index[c.current] == len(c.flow.steps)-1 }

// Position returns the 1-based position of the current step and the step count.
func (c *Cursor) Position() (n, total int) {
	return c.flow.index[c.current] + 1, len(c.flow.steps)
}
