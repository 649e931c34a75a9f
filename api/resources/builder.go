package resources

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var (
	segmentRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	lookupRe  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Builder collects registrations during startup. It is not safe for
// concurrent use; call Build once and share the resulting Table.
type Builder struct {
	top    []Registration
	nested []Nested
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Register adds a top-level collection served at /{segment}/ and
// /{segment}/{id}/. An empty baseName falls back to handler.Name().
func (b *Builder) Register(segment string, handler ViewSet, baseName string) *Builder {
	b.top = append(b.top, Registration{Segment: segment, Handler: handler, BaseName: baseName})
	return b
}

// Nest adds a collection under a registered parent segment. The parent id is
// captured as {<lookup>_pk}. An empty baseName falls back to
// "<lookup>-<segment>".
func (b *Builder) Nest(parent, lookup, segment string, handler ViewSet, baseName string) *Builder {
	b.nested = append(b.nested, Nested{
		Parent:   parent,
		Lookup:   lookup,
		Segment:  segment,
		Handler:  handler,
		BaseName: baseName,
	})
	return b
}

// Build validates every registration and compiles the table. All
// configuration errors are reported together.
func (b *Builder) Build() (*Table, error) {
	var errs error
	var bindings []Binding

	parents := make(map[string]bool, len(b.top))
	baseNames := map[string]string{}

	claimBaseName := func(name, owner string) {
		if prev, ok := baseNames[name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("base name %q is used by both %s and %s; pass an explicit base name", name, prev, owner))
			return
		}
		baseNames[name] = owner
	}

	for _, reg := range b.top {
		owner := fmt.Sprintf("/%s/", reg.Segment)
		if !segmentRe.MatchString(reg.Segment) {
			errs = multierr.Append(errs, fmt.Errorf("invalid segment %q", reg.Segment))
			continue
		}
		if reg.Handler == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: handler is required", owner))
			continue
		}
		if parents[reg.Segment] {
			errs = multierr.Append(errs, fmt.Errorf("segment %q is registered twice", reg.Segment))
			continue
		}
		parents[reg.Segment] = true

		base := reg.BaseName
		if base == "" {
			base = reg.Handler.Name()
		}
		if base == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: base name is empty", owner))
			continue
		}
		claimBaseName(base, owner)
		errs = multierr.Append(errs, checkExtras(owner, reg.Handler))

		prefix := "/" + reg.Segment + "/"
		bindings = append(bindings, expand(prefix, nil, base, reg.Handler)...)
	}

	children := map[string]bool{}
	for _, n := range b.nested {
		owner := fmt.Sprintf("/%s/{%s}/%s/", n.Parent, ParentParam(n.Lookup), n.Segment)
		if !parents[n.Parent] {
			errs = multierr.Append(errs, fmt.Errorf("%s: parent segment %q is not registered", owner, n.Parent))
			continue
		}
		if !lookupRe.MatchString(n.Lookup) {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid lookup %q", owner, n.Lookup))
			continue
		}
		if !segmentRe.MatchString(n.Segment) {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid segment %q", owner, n.Segment))
			continue
		}
		if n.Handler == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: handler is required", owner))
			continue
		}
		childKey := n.Parent + "/" + n.Segment
		if children[childKey] {
			errs = multierr.Append(errs, fmt.Errorf("segment %q is nested under %q twice", n.Segment, n.Parent))
			continue
		}
		children[childKey] = true

		base := n.BaseName
		if base == "" {
			base = n.Lookup + "-" + n.Segment
		}
		claimBaseName(base, owner)
		errs = multierr.Append(errs, checkExtras(owner, n.Handler))

		param := ParentParam(n.Lookup)
		prefix := "/" + n.Parent + "/{" + param + "}/" + n.Segment + "/"
		bindings = append(bindings, expand(prefix, []string{param}, base, n.Handler)...)
	}

	seen := make(map[string]string, len(bindings))
	for _, binding := range bindings {
		key := dispatchKey(binding.Method, binding.Pattern)
		if prev, ok := seen[key]; ok {
			errs = multierr.Append(errs, fmt.Errorf("route collision on %s (already bound by %s)", binding.Key(), prev))
			continue
		}
		seen[key] = binding.Name
	}

	if errs != nil {
		return nil, fmt.Errorf("resource table: %w", errs)
	}
	return newTable(bindings), nil
}

func expand(prefix string, parentParams []string, base string, vs ViewSet) []Binding {
	out := make([]Binding, 0, len(routes))
	for _, rt := range routes {
		pattern := prefix
		name := base + "-list"
		params := append([]string(nil), parentParams...)
		if rt.detail {
			pattern += "{" + IDParam + "}/"
			name = base + "-detail"
			params = append(params, IDParam)
		}
		out = append(out, Binding{
			Method:  rt.method,
			Pattern: pattern,
			Action:  rt.action,
			Name:    name,
			Params:  params,
			Handler: handlerFor(vs, rt.action),
		})
	}

	ea, ok := vs.(ExtraActions)
	if !ok {
		return out
	}
	for _, extra := range ea.Extras() {
		pattern := prefix
		params := append([]string(nil), parentParams...)
		if extra.Detail {
			pattern += "{" + IDParam + "}/"
			params = append(params, IDParam)
		}
		out = append(out, Binding{
			Method:  strings.ToUpper(extra.Method),
			Pattern: pattern + extra.Segment + "/",
			Action:  Action(extra.Segment),
			Name:    base + "-" + extra.Segment,
			Params:  params,
			Handler: extra.Handler,
		})
	}
	return out
}

func checkExtras(owner string, vs ViewSet) error {
	ea, ok := vs.(ExtraActions)
	if !ok {
		return nil
	}
	var errs error
	for _, extra := range ea.Extras() {
		switch {
		case !segmentRe.MatchString(extra.Segment):
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid extra segment %q", owner, extra.Segment))
		case extra.Method == "":
			errs = multierr.Append(errs, fmt.Errorf("%s: extra %q has no method", owner, extra.Segment))
		case extra.Handler == nil:
			errs = multierr.Append(errs, fmt.Errorf("%s: extra %q has no handler", owner, extra.Segment))
		}
	}
	return errs
}
