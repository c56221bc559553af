package tone

import (
	"errors"
	"fmt"
)

// ErrUnknownTone is returned when a name is not part of the catalog.
var ErrUnknownTone = errors.New("unknown tone")

// Entry pairs a tone name with the style instruction sent to the model.
type Entry struct {
	Name        string
	Instruction string
}

// catalog order is the order shown in selectors.
var catalog = []Entry{
	{"Formal", "Use a formal and highly professional tone suitable for legal communication."},
	{"Neutral", "Use a neutral and professional tone without sounding too rigid."},
	{"Friendly Professional", "Use a warm and approachable tone while maintaining professionalism."},
	{"Reassuring", "Use a compassionate, supportive tone to reassure the client."},
	{"Assertive/Strict", "Use a direct and firm tone to emphasize seriousness without impoliteness."},
	{"Instructional/Advisory", "Use a clear and informative tone to explain next steps."},
	{"Conciliatory", "Use a diplomatic and tactful tone to de-escalate conflict."},
	{"Urgent", "Use a direct and time-sensitive tone to emphasize immediacy."},
	{"Empathetic but Objective", "Balance empathy with professionalism."},
}

var byName = func() map[string]string {
	m := make(map[string]string, len(catalog))
	for _, e := range catalog {
		m[e.Name] = e.Instruction
	}
	return m
}()

// Catalog returns a copy of every entry in selector order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the tone names in selector order.
func Names() []string {
	out := make([]string, len(catalog))
	for i, e := range catalog {
		out[i] = e.Name
	}
	return out
}

// Instruction looks up the style instruction for name.
func Instruction(name string) (string, error) {
	instr, ok := byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTone, name)
	}
	return instr, nil
}

// Valid reports whether name is a catalog tone.
func Valid(name string) bool {
	_, ok := byName[name]
	return ok
}

// Default is the tone preselected in selectors.
func Default() string { return catalog[0].Name }
