package attributes

import (
	"github.com/jinzhu/copier"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Stack is a stack of attribute scopes. Pushing deep copies the top so a
// child scope can never modify its parent.
type Stack struct {
	states []*State
}

// NewStack creates a stack holding the default state
func NewStack() *Stack {
	s := &Stack{}
	s.Reset()
	return s
}

// Reset discards every scope and pushes a fresh default state
func (s *Stack) Reset() {
	s.states = []*State{NewState()}
}

// Size returns the number of scopes
func (s *Stack) Size() int { return len(s.states) }

// Top returns the current scope
func (s *Stack) Top() *State { return s.states[len(s.states)-1] }

// Push pushes a deep copy of the current scope
func (s *Stack) Push() error {
	child := &State{}
	if err := copier.CopyWithOption(child, s.Top(), copier.Option{DeepCopy: true}); err != nil {
		return err
	}
	if child.Visibility == nil {
		child.Visibility = map[string]bool{}
	}
	if child.Attributes == nil {
		child.Attributes = core.Params{}
	}
	s.states = append(s.states, child)
	return nil
}

// Pop discards the current scope. The root scope cannot be popped.
func (s *Stack) Pop() error {
	if len(s.states) <= 1 {
		return core.ErrStackUnderflow
	}
	s.states = s.states[:len(s.states)-1]
	return nil
}
