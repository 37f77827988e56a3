// Package backend describes the document backend: the endpoint URLs derived
// from its base URL, and the state observed by probing it.
package backend
