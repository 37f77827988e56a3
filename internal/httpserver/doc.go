// Package httpserver wraps http.Server with address validation, an explicit
// listen step and graceful shutdown.
package httpserver
