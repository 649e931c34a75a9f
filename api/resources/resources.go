// Package resources compiles collection registrations into an explicit,
// validated routing table that is frozen before the server starts.
package resources

import (
	"net/http"
	"strings"
)

// ViewSet serves the standard actions of one resource collection.
type ViewSet interface {
	// Name is the default base name used for route names.
	Name() string
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Retrieve(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	PartialUpdate(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

// Extra is an additional route a view set serves next to the standard
// actions: /{segment}/{extra}/ for collection routes or
// /{segment}/{id}/{extra}/ when Detail is set.
type Extra struct {
	Method  string
	Segment string
	Detail  bool
	Handler http.HandlerFunc
}

// ExtraActions is implemented by view sets that serve Extra routes.
type ExtraActions interface {
	Extras() []Extra
}

// Action names one of the standard collection actions.
type Action string

const (
	ActionList          Action = "list"
	ActionCreate        Action = "create"
	ActionRetrieve      Action = "retrieve"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDestroy       Action = "destroy"
)

// IDParam is the URL parameter carrying a resource's own identifier.
const IDParam = "id"

// ParentParam returns the URL parameter that carries the parent identifier
// for a nested lookup, e.g. "product" -> "product_pk".
func ParentParam(lookup string) string {
	return lookup + "_pk"
}

// Registration declares a top-level collection.
type Registration struct {
	Segment  string
	Handler  ViewSet
	BaseName string
}

// Nested declares a collection scoped under a registered top-level segment.
type Nested struct {
	Parent   string
	Lookup   string
	Segment  string
	Handler  ViewSet
	BaseName string
}

// Binding is one (method, pattern) pair of the compiled table.
type Binding struct {
	Method  string
	Pattern string
	Action  Action
	Name    string
	Params  []string
	Handler http.HandlerFunc
}

// Key identifies the binding for collision checks and lookups.
func (b Binding) Key() string {
	return bindingKey(b.Method, b.Pattern)
}

func bindingKey(method, pattern string) string {
	return strings.ToUpper(method) + " " + pattern
}

// dispatchKey ignores parameter names: /a/{id}/ and /a/{a_pk}/ match the
// same requests.
func dispatchKey(method, pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			parts[i] = "{}"
		}
	}
	return bindingKey(method, strings.Join(parts, "/"))
}

type route struct {
	method string
	action Action
	detail bool
}

// routes lists the standard action set generated for every collection.
var routes = []route{
	{method: http.MethodGet, action: ActionList},
	{method: http.MethodPost, action: ActionCreate},
	{method: http.MethodGet, action: ActionRetrieve, detail: true},
	{method: http.MethodPut, action: ActionUpdate, detail: true},
	{method: http.MethodPatch, action: ActionPartialUpdate, detail: true},
	{method: http.MethodDelete, action: ActionDestroy, detail: true},
}

func handlerFor(vs ViewSet, action Action) http.HandlerFunc {
	switch action {
	case ActionList:
		return vs.List
	case ActionCreate:
		return vs.Create
	case ActionRetrieve:
		return vs.Retrieve
	case ActionUpdate:
		return vs.Update
	case ActionPartialUpdate:
		return vs.PartialUpdate
	case ActionDestroy:
		return vs.Destroy
	}
	return nil
}
