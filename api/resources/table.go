package resources

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Table is the compiled, read-only routing table. It is safe for concurrent
// readers.
type Table struct {
	bindings []Binding
	byKey    map[string]int
	byName   map[string]string
}

func newTable(bindings []Binding) *Table {
	t := &Table{
		bindings: bindings,
		byKey:    make(map[string]int, len(bindings)),
		byName:   make(map[string]string, len(bindings)/3),
	}
	for i, b := range bindings {
		t.byKey[b.Key()] = i
		t.byName[b.Name] = b.Pattern
	}
	return t
}

// Bindings returns a copy of every binding in registration order.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	for i, b := range t.bindings {
		b.Params = append([]string(nil), b.Params...)
		out[i] = b
	}
	return out
}

// Len reports the number of bindings.
func (t *Table) Len() int {
	return len(t.bindings)
}

// Lookup finds the binding registered for method and pattern.
func (t *Table) Lookup(method, pattern string) (Binding, bool) {
	i, ok := t.byKey[bindingKey(method, pattern)]
	if !ok {
		return Binding{}, false
	}
	b := t.bindings[i]
	b.Params = append([]string(nil), b.Params...)
	return b, true
}

// Reverse returns the pattern registered under a route name such as
// "product-detail".
func (t *Table) Reverse(name string) (string, bool) {
	pattern, ok := t.byName[name]
	return pattern, ok
}

// Path fills the pattern for name with args in parameter order. Each arg is
// path-escaped and substituted exactly once.
func (t *Table) Path(name string, args ...string) (string, error) {
	pattern, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown route %q", name)
	}
	var params []string
	for _, b := range t.bindings {
		if b.Name == name {
			params = b.Params
			break
		}
	}
	if len(args) != len(params) {
		return "", fmt.Errorf("route %q takes %d params, got %d", name, len(params), len(args))
	}
	next := 0
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			parts[i] = url.PathEscape(args[next])
			next++
		}
	}
	return strings.Join(parts, "/"), nil
}

// Mount registers every binding on r.
func (t *Table) Mount(r chi.Router) {
	for _, b := range t.bindings {
		r.Method(b.Method, b.Pattern, b.Handler)
	}
}
