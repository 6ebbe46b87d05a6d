// Package routing maps request paths to handlers through an ordered table of
// named routes. Routes are matched top to bottom and the first match wins.
// Names are used for reverse lookup, so a handler can build the URL of any
// other route without hard-coding paths.
package routing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	// ErrNotFound is returned by Resolve when no pattern matches the path.
	ErrNotFound = errors.New("no route matches path")
	// ErrDuplicateName is returned by Register when the route name is taken.
	ErrDuplicateName = errors.New("duplicate route name")
	// ErrInvalidPattern is returned by Register for malformed patterns.
	ErrInvalidPattern = errors.New("invalid route pattern")
	// ErrNoReverseMatch is returned by Reverse for unknown names or bad params.
	ErrNoReverseMatch = errors.New("no reverse match")
)

// MethodNotAllowedError is returned by Resolve when a pattern matches the path
// but none of the matching routes accept the request method.
type MethodNotAllowedError struct {
	Path    string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method not allowed for %q (allowed: %s)", e.Path, strings.Join(e.Allowed, ", "))
}

// Params holds the values captured by a pattern's placeholders.
type Params map[string]string

// Route binds a path pattern and method to a handler under a reverse-lookup name.
//
// Patterns are slash-separated and carry no leading slash. A segment written
// as {name} or {name:converter} captures a value; the default converter is
// "str". An empty Method accepts any method.
type Route struct {
	Pattern string
	Method  string
	Name    string
	Handler gin.HandlerFunc
}

// Match is the result of a successful Resolve.
type Match struct {
	Route  Route
	Params Params
}

// Reverser builds paths from route names.
type Reverser interface {
	Reverse(name string, params Params) (string, error)
	URL(name string, params Params) (string, error)
}

type segment struct {
	literal string
	param   string
	conv    converter
}

type compiledRoute struct {
	Route
	segments []segment
	params   []string
}

// Table is an ordered route table. Routes must be registered before the
// table starts serving; after that it is read-only and safe for concurrent use.
type Table struct {
	prefix string
	routes []*compiledRoute
	byName map[string]*compiledRoute
}

// NewTable creates an empty table mounted under prefix (for example "/api/").
// The prefix only affects URL and Dispatch; Resolve and Reverse work on paths
// relative to it.
func NewTable(prefix string) *Table {
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Table{
		prefix: prefix,
		byName: make(map[string]*compiledRoute),
	}
}

// Prefix returns the mount prefix, always with leading and trailing slash.
func (t *Table) Prefix() string {
	return t.prefix
}

// Register compiles the route's pattern and appends it to the table.
// Empty names are allowed and are not reversible.
func (t *Table) Register(route Route) error {
	if route.Name != "" {
		if _, exists := t.byName[route.Name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateName, route.Name)
		}
	}
	if route.Handler == nil {
		return fmt.Errorf("%w: route %q has no handler", ErrInvalidPattern, route.Name)
	}

	segments, params, err := compile(route.Pattern)
	if err != nil {
		return err
	}

	cr := &compiledRoute{
		Route:    route,
		segments: segments,
		params:   params,
	}
	cr.Method = strings.ToUpper(route.Method)

	t.routes = append(t.routes, cr)
	if route.Name != "" {
		t.byName[route.Name] = cr
	}
	return nil
}

// MustRegister is Register for static tables built at startup.
func (t *Table) MustRegister(route Route) {
	if err := t.Register(route); err != nil {
		panic(err)
	}
}

// Routes returns the registered routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r.Route)
	}
	return out
}

// Resolve returns the first route whose pattern matches path and whose method
// accepts method. A single leading slash on path is ignored.
func (t *Table) Resolve(path, method string) (*Match, error) {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	method = strings.ToUpper(method)

	var allowed []string
	for _, r := range t.routes {
		params, ok := r.match(parts)
		if !ok {
			continue
		}
		if r.Method != "" && r.Method != method {
			if !slices.Contains(allowed, r.Method) {
				allowed = append(allowed, r.Method)
			}
			continue
		}
		return &Match{Route: r.Route, Params: params}, nil
	}

	if len(allowed) > 0 {
		return nil, &MethodNotAllowedError{Path: path, Allowed: allowed}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
}

// Reverse builds the path (relative to the prefix) of the named route.
// Every placeholder must be supplied and satisfy its converter; extra
// params are rejected.
func (t *Table) Reverse(name string, params Params) (string, error) {
	r, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown route %q", ErrNoReverseMatch, name)
	}

	for key := range params {
		if !slices.Contains(r.params, key) {
			return "", fmt.Errorf("%w: route %q has no parameter %q", ErrNoReverseMatch, name, key)
		}
	}

	parts := make([]string, len(r.segments))
	for i, seg := range r.segments {
		if seg.param == "" {
			parts[i] = seg.literal
			continue
		}
		value, ok := params[seg.param]
		if !ok {
			return "", fmt.Errorf("%w: route %q requires parameter %q", ErrNoReverseMatch, name, seg.param)
		}
		if !seg.conv.match(value) {
			return "", fmt.Errorf("%w: %q is not a valid %s for parameter %q", ErrNoReverseMatch, value, seg.conv.name, seg.param)
		}
		parts[i] = value
	}
	return strings.Join(parts, "/"), nil
}

// URL is Reverse with the table prefix prepended.
func (t *Table) URL(name string, params Params) (string, error) {
	path, err := t.Reverse(name, params)
	if err != nil {
		return "", err
	}
	return t.prefix + path, nil
}

func (r *compiledRoute) match(parts []string) (Params, bool) {
	if len(parts) != len(r.segments) {
		return nil, false
	}
	var params Params
	for i, seg := range r.segments {
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		if !seg.conv.match(parts[i]) {
			return nil, false
		}
		if params == nil {
			params = make(Params, len(r.params))
		}
		params[seg.param] = parts[i]
	}
	return params, true
}

func compile(pattern string) ([]segment, []string, error) {
	if strings.HasPrefix(pattern, "/") {
		return nil, nil, fmt.Errorf("%w: %q must not start with a slash", ErrInvalidPattern, pattern)
	}

	raw := strings.Split(pattern, "/")
	segments := make([]segment, 0, len(raw))
	var params []string

	for i, part := range raw {
		// Only the final segment may be empty (trailing slash).
		if part == "" && i != len(raw)-1 && pattern != "" {
			return nil, nil, fmt.Errorf("%w: %q contains an empty segment", ErrInvalidPattern, pattern)
		}

		if !strings.ContainsAny(part, "{}") {
			segments = append(segments, segment{literal: part})
			continue
		}

		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			return nil, nil, fmt.Errorf("%w: placeholder must span the whole segment in %q", ErrInvalidPattern, pattern)
		}

		name, convName, _ := strings.Cut(part[1:len(part)-1], ":")
		if convName == "" {
			convName = "str"
		}
		if !isIdentifier(name) {
			return nil, nil, fmt.Errorf("%w: bad placeholder name %q in %q", ErrInvalidPattern, name, pattern)
		}
		if slices.Contains(params, name) {
			return nil, nil, fmt.Errorf("%w: placeholder %q repeated in %q", ErrInvalidPattern, name, pattern)
		}
		conv, ok := converters[convName]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown converter %q in %q", ErrInvalidPattern, convName, pattern)
		}

		params = append(params, name)
		segments = append(segments, segment{param: name, conv: conv})
	}

	return segments, params, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
