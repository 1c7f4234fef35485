// Package context holds request-scoped values shared between HTTP middleware,
// services and the logging handler.
package context

type contextKey string
