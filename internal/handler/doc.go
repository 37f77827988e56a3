// Package handler implements the debug HTTP surface: health, probe status,
// connection info, the network grid and a thin document API proxied through
// the API client.
package handler
