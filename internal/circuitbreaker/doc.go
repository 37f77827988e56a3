// Package circuitbreaker stops document requests from piling up against a
// backend that is not answering.
//
// The breaker has three states:
//
//   - CLOSED: requests go through
//   - OPEN: consecutive no-response failures reached the threshold; requests
//     are refused until the reset timeout elapses
//   - HALF-OPEN: one trial request is let through; its outcome closes or
//     reopens the breaker
//
// A nil *Breaker is valid and never refuses anything, which is how a
// threshold of 0 disables the feature.
//
// Usage:
//
//	cb := circuitbreaker.New(5, 30*time.Second)
//	if !cb.Allow() {
//	    return skipped
//	}
//	if noResponse {
//	    cb.Failure()
//	} else {
//	    cb.Success()
//	}
package circuitbreaker
