package openapi

import (
	"sort"
	"strings"
)

// RouteEntry is one (method, pattern) → operation binding.
type RouteEntry struct {
	Method      string
	Pattern     string
	OperationID string
	Operation   *Operation
	segments    []routeSegment
	specificity int
	order       int
}

type routeSegment struct {
	literal string
	isParam bool
	name    string
}

func parseSegments(pattern string) []routeSegment {
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	segments := make([]routeSegment, len(parts))
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			segments[i] = routeSegment{isParam: true, name: p[1 : len(p)-1]}
		} else {
			segments[i] = routeSegment{literal: p}
		}
	}
	return segments
}

// specificity computes 10·|segments| + 5·|literalSegments|.
func specificity(segments []routeSegment) int {
	literal := 0
	for _, s := range segments {
		if !s.isParam {
			literal++
		}
	}
	return 10*len(segments) + 5*literal
}

// Router maps (method, path) to a matched operation, with route
// specificity breaking ties between overlapping templates.
type Router struct {
	routes []*RouteEntry
}

// NewRouter builds a router from the operations discovered in an OpenAPI
// document. It does not filter entries; ParseDocument already drops
// operations without an operationId.
func NewRouter(routes []*RouteEntry) *Router {
	for i, r := range routes {
		r.segments = parseSegments(r.Pattern)
		r.specificity = specificity(r.segments)
		r.order = i
	}
	sorted := make([]*RouteEntry, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].specificity != sorted[j].specificity {
			return sorted[i].specificity > sorted[j].specificity
		}
		return sorted[i].order < sorted[j].order
	})
	return &Router{routes: sorted}
}

// Match is the result of a successful route lookup.
type Match struct {
	OperationID    string
	Operation      *Operation
	Template       string
	PathParameters map[string]string
}

// normalizePath prepends "/" if missing and strips a single trailing "/"
// except for the root.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// Match finds the highest-specificity route matching (method, path). The
// routes slice is pre-sorted by descending specificity (ties broken by
// insertion order), so the first segment-level match wins.
func (r *Router) Match(method, path string) (Match, bool) {
	method = strings.ToUpper(method)
	path = normalizePath(path)
	requestSegments := strings.Split(strings.Trim(path, "/"), "/")
	if path == "/" {
		requestSegments = nil
	}

	for _, route := range r.routes {
		if route.Method != method {
			continue
		}
		if len(route.segments) != len(requestSegments) {
			continue
		}
		params := make(map[string]string, len(route.segments))
		matched := true
		for i, seg := range route.segments {
			if seg.isParam {
				params[seg.name] = requestSegments[i]
				continue
			}
			if seg.literal != requestSegments[i] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		return Match{
			OperationID:    route.OperationID,
			Operation:      route.Operation,
			Template:       route.Pattern,
			PathParameters: params,
		}, true
	}
	return Match{}, false
}
