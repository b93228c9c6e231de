// Package v0 implements the v0 HTTP API endpoints.
package v0

// Response is a generic response wrapper for huma handlers
type Response[T any] struct {
	Body T
}
