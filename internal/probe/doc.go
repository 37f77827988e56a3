// Package probe checks whether the document backend is alive.
//
// A probe is one bounded GET against a known endpoint. Any status below 500
// counts as alive, including 4xx: a server that answers at all is up. Every
// failure mode (server error, no response, malformed request) is folded into
// the returned Result; nothing is raised to the caller.
package probe
