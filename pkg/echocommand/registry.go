package echocommand

import "fmt"

// DefaultInstructions is the built-in command list, in play order.
var DefaultInstructions = []string{
	"Let’s keep moving",
	"We’re almost there",
	"Hold your position!",
	"Don’t get separated!",
	"Don’t look back",
	"Let’s finish this!",
	"Keep your head down!",
	"We have to find shelter",
	"I hope this ends",
	"Keep going",
}

// Registry is an immutable, ordered list of instructions. It is safe for
// concurrent use.
type Registry struct {
	items []string
}

func NewRegistry(items []string) *Registry {
	cp := make([]string, len(items))
	copy(cp, items)
	return &Registry{items: cp}
}

func (r *Registry) Len() int {
	return len(r.items)
}

// All returns a copy of the instructions in order.
func (r *Registry) All() []string {
	cp := make([]string, len(r.items))
	copy(cp, r.items)
	return cp
}

// At returns the instruction at position i.
func (r *Registry) At(i int) (string, error) {
	if i < 0 || i >= len(r.items) {
		return "", fmt.Errorf("%w: %d (have %d instructions)", ErrOutOfRange, i, len(r.items))
	}
	return r.items[i], nil
}
