package grammar

import "fmt"

// Args holds the parsed values of one command line, keyed by parameter name.
type Args struct {
	values map[string]any
}

// Lookup returns the value bound to name. ok is false for options that
// were neither given nor defaulted.
func Lookup[T any](a Args, name string) (T, bool) {
	v, ok := a.values[name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("grammar: argument %q is %T, not %T", name, v, *new(T)))
	}
	return t, true
}

// Get is Lookup for parameters that always carry a value: positionals,
// switches and defaulted options.
func Get[T any](a Args, name string) T {
	v, _ := Lookup[T](a, name)
	return v
}

// Has reports whether name was bound.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}
