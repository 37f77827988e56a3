// Package healthcheck implements periodic health checking of the document
// backend. It probes the list endpoint on an interval, updates the shared
// backend state and reports availability transitions.
package healthcheck
