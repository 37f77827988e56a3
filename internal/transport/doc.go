// Package transport performs single HTTP exchanges against the document
// backend and reports each one as a tagged Outcome: the remote responded,
// no response arrived, or the request could not be built at all.
package transport
