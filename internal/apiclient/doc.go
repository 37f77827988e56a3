// Package apiclient talks to the document backend on behalf of the chat UI:
// uploads, listing, deletion, liveness and a configuration report.
//
// Like the probe, the client never returns a Go error for backend trouble.
// Each call yields a result value whose Error field carries a message meant
// to be shown to the user verbatim.
package apiclient
