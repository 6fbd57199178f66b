// Package httpserver implements the browser-facing HTTP server on Echo.
//
// Every list route opens the caller's session (loadSession), resolves
// :list_id where present (requireList), validates input through package app,
// and answers with a redirect, a re-rendered form, or a bare status for
// script callers. Handlers are split by resource: handlers_lists.go,
// handlers_todos.go, handlers_health.go.
package httpserver
