package store

import (
	"context"
	"net/url"
	"strings"
)

// RequestInfo carries the request attributes caveat predicates are evaluated against.
type RequestInfo struct {
	Method string
	Query  url.Values
}

type requestInfoKey struct{}

// WithRequestInfo stores the current request's method and query in the context.
func WithRequestInfo(ctx context.Context, method string, query url.Values) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, RequestInfo{
		Method: strings.ToUpper(method),
		Query:  query,
	})
}

// RequestInfoFrom returns the request info stored in ctx, if any.
func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}
