package openapi

import (
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
)

// CachedRouter memoizes Router.Match behind a bounded LRU. Match is a
// pure function of (method, path) for a fixed document, so the cache
// never observes a stale entry as long as the router is rebuilt, not
// mutated, whenever the OpenAPI document changes.
type CachedRouter struct {
	router *Router
	cache  *lru.Cache[string, cachedMatch]
}

type cachedMatch struct {
	match Match
	ok    bool
}

// NewCachedRouter wraps router with an LRU cache of the given size.
func NewCachedRouter(router *Router, size int) *CachedRouter {
	cache, _ := lru.New[string, cachedMatch](size)
	return &CachedRouter{router: router, cache: cache}
}

// Match consults the cache before falling back to the router's real
// segment-matching algorithm.
func (c *CachedRouter) Match(method, path string) (Match, bool) {
	key := strings.ToUpper(method) + " " + path
	if cached, ok := c.cache.Get(key); ok {
		return cached.match, cached.ok
	}
	match, ok := c.router.Match(method, path)
	c.cache.Add(key, cachedMatch{match: match, ok: ok})
	return match, ok
}

// RoutedOperation is the wire protocol output: a routed
// operation event carrying everything a feature set needs to act on an
// incoming HTTP request.
type RoutedOperation struct {
	RequestID      uuid.UUID
	OperationID    string
	Method         string
	Path           string
	Template       string
	PathParameters map[string]string
	QueryParameters map[string][]string
	Headers        map[string][]string
	Body           []byte
}

// NotFoundBody is the exact JSON body shape for an unmatched route.
type NotFoundBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Route is the top-level entry point a wire-protocol HTTP handler calls:
// it matches (method, path), parses the raw query string, and returns
// either a RoutedOperation or a 404 body.
func Route(router *CachedRouter, method, path, rawQuery string, headers map[string][]string, body []byte) (*RoutedOperation, *NotFoundBody) {
	match, ok := router.Match(method, path)
	if !ok {
		return nil, &NotFoundBody{
			Error:   "Not Found",
			Message: "No route matches " + strings.ToUpper(method) + " " + path,
		}
	}
	query, _ := url.ParseQuery(rawQuery)
	return &RoutedOperation{
		RequestID:       uuid.New(),
		OperationID:     match.OperationID,
		Method:          strings.ToUpper(method),
		Path:            path,
		Template:        match.Template,
		PathParameters:  match.PathParameters,
		QueryParameters: query,
		Headers:         headers,
		Body:            body,
	}, nil
}
